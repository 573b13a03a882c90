package types

import "testing"

func TestModuleInfoFullName(t *testing.T) {
	mi := ModuleInfo{Name: "rng", Base: "hardware"}
	if mi.GetFullName() != "hardware:rng" {
		t.Error("Fail to get the full name of module")
	}
	mi = ModuleInfo{Name: "rng"}
	if mi.GetFullName() != "rng" {
		t.Error("Fail to get the full name of module without base")
	}
}

func TestModuleInfosSortByName(t *testing.T) {
	infos := ModuleInfos{{Name: "rnglogic"}, {Name: "counter"}, {Name: "rng"}}
	infos.SortByName()
	if infos[0].Name != "counter" || infos[1].Name != "rng" || infos[2].Name != "rnglogic" {
		t.Error("Fail to sort the module informations by name")
	}
}
