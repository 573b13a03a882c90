package types

// ReloadConfigResult the result of a configuration reload
type ReloadConfigResult struct {
	AddedModules   []string
	ChangedModules []string
	RemovedModules []string
}
