package models

// Target identifies the PostgreSQL container under management. drydock never
// creates this container; it orchestrates an existing one plus its data volume.
type Target struct {
	Container    string `toml:"container" json:"container"`
	Volume       string `toml:"volume" json:"volume"`
	Username     string `toml:"username" json:"username"`
	Database     string `toml:"database" json:"database"`
	DataDir      string `toml:"data_dir" json:"data_dir"`
	DataOwner    string `toml:"data_owner" json:"data_owner"`
	PasswordFile string `toml:"password_file" json:"password_file"`
}
