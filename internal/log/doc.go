// Package log builds the application logger: log/slog text output on the
// console, an optional size-rotated log file, and a SecureHandler in front
// of both.
//
// The crawler logs request headers, proxy addresses, database connection
// strings and backend URLs. SecureHandler keeps those useful while
// removing secrets:
//   - Authorization, Cookie and API key attributes are replaced by MaskValue
//   - Bearer tokens, sk- keys and JWTs are masked whatever their key
//   - URLs keep scheme, host and path, but passwords and secret query
//     parameters such as api_key are replaced
//
// Usage:
//
//	logger, closer := log.New(log.Options{Verbose: true, Save: true, File: "safarnama.log"})
//	defer closer.Close()
//	slog.SetDefault(logger)
//
//	logger.Info("llm configured", "endpoint", cfg.LLM.Endpoint, "llm_api_key", cfg.LLM.APIKey)
package log
