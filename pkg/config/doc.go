// Package config resolves the run configuration of the API test suite.
//
// The configuration is a fixed tree of sections (application, execution,
// logging) packaged as YAML inside the binary. After decoding, every leaf can
// be overridden by its dotted key from an external source:
//
//	execution.retry=3
//	application.http.timeoutSeconds=60
//	application.environment=staging
//
// Resolution order of the default source (highest first):
//   - Command line properties (-D key=value)
//   - Environment variables, by exact key or AUTOMATION_<KEY_PATH>
//   - System keychain (service "automation")
//   - Encrypted vault file, when SourceOptions.VaultFile is set
//   - .env files
//
// Basic usage:
//
//	src, err := config.DefaultSource(config.SourceOptions{
//		Properties: []string{"execution.retry=1"},
//		EnvFiles:   []string{".env"},
//	})
//	if err != nil {
//		return err
//	}
//	cfg, err := config.Init(config.WithSource(src))
//	if err != nil {
//		return err // fatal: nothing can run without configuration
//	}
//	fmt.Println(cfg.Application.BaseAPI, cfg.Execution.Retry)
//
// Later readers call config.Get or config.MustGet and receive the same
// document; it is never modified after the first load.
//
// Override coercion:
//   - string leaves take the raw value
//   - int leaves must parse as integers, otherwise loading fails
//   - bool leaves are true only for "true" in any case; any other value is false
//   - enum leaves match their constants ignoring case, otherwise loading fails
package config
