package controller

import (
	"github.com/shinji-kodama/coredeck/internal/model"
)

// State is everything the control surface renders. It is owned by one
// Controller and changed only through the Controller's operations;
// callers get copies from Snapshot.
type State struct {
	// Status is the last project status, nil before the first refresh.
	Status *model.Status

	// Cwd and Items are the current explorer listing.
	Cwd   string
	Items []model.TreeItem

	// OpenPath is the file loaded in the editor ("" when none).
	OpenPath string

	// Buffer is the editor text; Dirty is set by Edit and cleared by a
	// successful open or save.
	Buffer string
	Dirty  bool

	// Candidates are the backend's node app roots.
	Candidates []string

	// FrontSubdir and BackSubdir are the current subdir guesses.
	FrontSubdir string
	BackSubdir  string

	// FrontHostPort and BackHostPort are the host ports typed by the user.
	FrontHostPort string
	BackHostPort  string

	// Containers is the last listing; URLs are derived from it and the guesses.
	Containers *model.ContainersMap
	URLs       model.ResolvedURLs

	// Plugins are the slugs found in the plugin directory.
	Plugins []string

	// UploadSent and UploadTotal track the running upload in bytes.
	UploadSent  int64
	UploadTotal int64

	// Notice is the last operation outcome shown to the user.
	Notice string

	// Busy mirrors the guard: true while a sequence is in flight.
	Busy bool
}

// clone returns a deep copy of s.
func (s State) clone() State {
	out := s
	if s.Status != nil {
		st := *s.Status
		out.Status = &st
	}
	out.Items = append([]model.TreeItem(nil), s.Items...)
	out.Candidates = append([]string(nil), s.Candidates...)
	out.Plugins = append([]string(nil), s.Plugins...)
	cm := s.Containers.Clone()
	out.Containers = &cm
	return out
}
