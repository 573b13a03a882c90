package types

import (
	"fmt"
	"sort"
)

// ModuleInfo the managed module information
type ModuleInfo struct {
	Name           string `json:"name"`
	Base           string `json:"base"`
	Class          string `json:"class"`
	RemoteURL      string `json:"remote_url"`
	Description    string `json:"description"`
	ActivationTime int64  `json:"activation_time"`
	Now            int64  `json:"now"`
	State          int64  `json:"state"`
	StateName      string `json:"statename"`
	LastError      string `json:"lasterror"`
}

// GetFullName get the full name of the module including its base group
func (mi ModuleInfo) GetFullName() string {
	if len(mi.Base) > 0 {
		return fmt.Sprintf("%s:%s", mi.Base, mi.Name)
	}
	return mi.Name
}

// IsRemote returns true if the module is hosted by another daemon
func (mi ModuleInfo) IsRemote() bool {
	return mi.RemoteURL != ""
}

type ModuleInfos []ModuleInfo

func (mi ModuleInfos) SortByName() {
	sort.Slice(mi, func(i, j int) bool {
		return mi[i].Name < mi[j].Name
	})
}
