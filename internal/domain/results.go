package domain

import "time"

// ResultFile describes one produced file saved on this machine.
type ResultFile struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}
