/*
Package logging configures the process-wide slog logger.

Records always go to stdout as text. When a Seq URL is configured they are
also shipped to Seq in batches:

	logger, closeFn := logging.SetupLogger(cfg.SeqURL, cfg.LogLevel)
	defer closeFn()
	slog.SetDefault(logger)
*/
package logging
