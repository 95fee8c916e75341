// Package filetree is the file-tree provider consumed by the retention engine.
//
// A Tree addresses nodes both by stable int64 id and by absolute slash path.
// Group folder content lives below "/__groupfolders/<id>/"; user views such
// as "/<user>/files/<mount>/" may exist alongside it.
//
// Two implementations are provided:
//
//   - AferoTree stores nodes on an afero filesystem: a directory on disk in
//     production (afero.NewBasePathFs over afero.NewOsFs) or afero.NewMemMapFs
//     in tests.
//   - S3Tree stores files as objects in a bucket and folders as "prefix/"
//     marker objects.
//
// Both delegate id assignment to an Index. MemoryIndex keeps ids in process;
// SQLIndex persists them in the file_nodes table.
package filetree
