// Package executor performs the file action of an expired retention.
//
// Three actions are supported:
//
//   - delete removes the item.
//   - move copies the item to its target, verifies the copy and only then
//     removes the source.
//   - archive works like move, except the destination is always
//     <target>/archive_YYYY-MM-DD/ and the item name gets a
//     YYYY-MM-DD_HH-MM-SS_ prefix.
//
// # Target Resolution
//
// A target path that ends in "/" or names an existing folder is taken as
// the destination directory and the item keeps its name. Otherwise the last
// segment is the new name, unless the item is a file with an extension and
// the segment has none, in which case the segment is a directory too.
// Relative targets resolve against the group folder that holds the item.
// Missing directories are created one segment at a time.
//
// If the destination name is taken, _1, _2, and so on are appended to the
// base name until a free name is found.
//
// # Verification
//
// Every copied file is compared by size with its source. On mismatch the
// partial copy is removed and the source is left untouched. Folders are
// copied in full before the source folder is removed; a failed folder copy
// removes what was copied. Copy and delete are not atomic: a failure to
// delete the source after a verified copy leaves both in place.
package executor
