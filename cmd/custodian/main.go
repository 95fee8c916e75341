// Custodian applies retention policies to files in group folders.
//
// Administrators define policies and assign them to group folders; users
// put individual files or folders under a policy. A scheduled scan deletes,
// moves or archives every item whose retention has expired and records
// each attempt in the processing log.
//
// Usage:
//
//	# Start the scheduler, policy watcher and ops server
//	custodian run --config /etc/custodian/config.yaml
//
//	# Preview what the next scan would do
//	custodian scan --dry-run
//
//	# Put a file under retention
//	custodian retention set 1042 --period 30 --unit days --user alice
//
//	# Import policies from YAML
//	custodian policy import policies.yaml
//
//	# Export the processing log
//	custodian logs --format csv > processing.csv
package main

func main() {
	Execute()
}
