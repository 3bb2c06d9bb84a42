// Package project gathers the files of a local project folder for upload.
//
// The backend expects the same layout a browser sends for a directory
// picker: every file is named by its path relative to the picked folder's
// parent, so the first segment is the folder's own name
// ("shop/frontend/package.json"). Collect reproduces that naming from the
// local filesystem.
//
// Remote repositories are imported by cloning them shallowly with go-git
// into a temporary directory and collecting that directory under the
// repository's name.
//
// Design decisions:
//   - go-git is used instead of shelling out to git so that "upload --git"
//     works on machines without a git binary.
//   - Files are opened lazily (File.Open) so the upload can stream folders
//     of any size.
package project
