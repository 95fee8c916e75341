// Package logging configures log/slog for custodian.
//
// New builds a JSON or text handler at the configured level. The handler
// adds the scan run id, the user id and the active trace id from the
// context to each record, and masks credentials: URL passwords in DSNs,
// password= parameters, AWS access key ids, bearer tokens, and any
// attribute whose key names a password, secret or token.
//
//	logger, err := logging.Setup(&cfg.Telemetry.Logging, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	ctx = logging.WithRunID(ctx, runID)
//	logger.InfoContext(ctx, "scan started")
package logging
