package llmprompter

const (
	rootCommandUse       = "llm-prompter"
	rootCommandShort     = "Run prompt pipelines over payload files against LLM backends"
	runCommandUse        = "run"
	runCommandShort      = "Process every payload with the configured prompts and backends"
	stagesCommandUse     = "stages"
	stagesCommandShort   = "Print the prompt mode and the resolved prompts"
	initCommandUse       = "init DIR"
	initCommandShort     = "Write a configuration template into DIR"
	configFlagName       = "config"
	configFlagUsage      = "Path to the configuration file (default: ./llm-prompter.yaml, then ~/.llm-prompter/config.yaml)"
	forceFlagName        = "force"
	forceFlagUsage       = "Process every payload even when its hash is unchanged"
	verifyHashFlagName   = "verify-hash"
	verifyHashFlagUsage  = "Skip payloads whose hash is unchanged (requires answer.hash_dir)"
	schemaYesLabel       = "yes"
	schemaNoLabel        = "no"
	summaryOutputFormat  = "total=%d success=%d skipped=%d error=%d\n"
	modeOutputFormat     = "mode=%s\n"
	promptOutputFormat   = "%d:%d %s schema=%s\n"
	templateOutputFormat = "configuration template written to %s\n"

	configurationLoaderInitializationErrorFormat = "initialize configuration loader: %w"
	configurationLoadErrorFormat                 = "load configuration: %w"
	backendBuildErrorFormat                      = "build backend %s: %w"
	loadPromptsErrorFormat                       = "load prompts: %w"
	runPanicErrorFormat                          = "run panicked: %v"
	runErrorFormat                               = "run: %w"
)
