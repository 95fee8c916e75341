// Package policies manages retention policies and maps items to them.
//
// Service is the administrative surface: create, update, toggle and delete
// policies and assign them to group folders. Matcher answers which policy
// governs a given item. Policies can also be declared in a YAML file and
// applied with Import; Watcher re-applies the file when it changes.
//
// # Policy file
//
//	policies:
//	  - name: Contracts
//	    description: Signed contracts
//	    action: archive
//	    target_path: /archive/contracts/
//	    notify_before_days: 14
//	    auto_process: true
//	    allowed_periods: ["6 months", "1 year", "7 years"]
//	    require_justification: true
//	    folders: [3, 4]
//
// Entries are matched to stored policies by name. A matching entry updates
// the stored policy and replaces its folder assignments; other entries create
// new policies. Stored policies absent from the file are left untouched.
package policies
