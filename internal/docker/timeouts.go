package docker

import "time"

const (
	ImagePullTimeout     = 10 * time.Minute
	ContainerOpTimeout   = 30 * time.Second
	ContainerStopTimeout = 10 * time.Second
)
