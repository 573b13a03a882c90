package config

import (
	"fmt"
	"sort"
	"strings"
)

type byPriority []*Descriptor

func (p byPriority) Len() int {
	return len(p)
}

func (p byPriority) Swap(i, j int) {
	p[i], p[j] = p[j], p[i]
}

func (p byPriority) Less(i, j int) bool {
	if p[i].GetPriority() != p[j].GetPriority() {
		return p[i].GetPriority() < p[j].GetPriority()
	}
	return p[i].Name < p[j].Name
}

func sortByPriority(descriptors []*Descriptor) {
	sort.Sort(byPriority(descriptors))
}

// sortModules orders the descriptors so that every module comes after the
// modules its connect mapping points at. Modules without connect edges are
// ordered by priority. A cycle over connect edges is a configuration error:
// activation walks this order and a cycle would make it unsatisfiable.
func sortModules(descriptors []*Descriptor) ([]*Descriptor, error) {
	byName := make(map[string]*Descriptor)
	dependsOnGraph := make(map[string][]string)
	withoutDepends := make([]*Descriptor, 0)

	for _, d := range descriptors {
		byName[d.Name] = d
		if len(d.Connect) == 0 {
			withoutDepends = append(withoutDepends, d)
			continue
		}
		targets := make([]string, 0, len(d.Connect))
		for _, target := range d.Connect {
			targets = append(targets, target)
		}
		sort.Strings(targets)
		dependsOnGraph[d.Name] = targets
	}

	sortByPriority(withoutDepends)
	result := make([]*Descriptor, 0, len(descriptors))
	finished := make(map[string]bool)
	for _, d := range withoutDepends {
		finished[d.Name] = true
		result = append(result, d)
	}

	remaining := make([]string, 0, len(dependsOnGraph))
	for name := range dependsOnGraph {
		remaining = append(remaining, name)
	}
	sort.Strings(remaining)

	for len(remaining) > 0 {
		progressed := false
		next := remaining[:0]
		for _, name := range remaining {
			if dependsFinished(dependsOnGraph[name], byName, finished) {
				finished[name] = true
				result = append(result, byName[name])
				progressed = true
			} else {
				next = append(next, name)
			}
		}
		remaining = next
		if !progressed {
			return nil, fmt.Errorf("cyclic connect references between modules: %s", strings.Join(remaining, ", "))
		}
	}
	return result, nil
}

// a dependency that is not a declared module does not block the sort, the
// validator reports it as a dangling reference
func dependsFinished(depends []string, byName map[string]*Descriptor, finished map[string]bool) bool {
	for _, dep := range depends {
		if _, declared := byName[dep]; !declared {
			continue
		}
		if !finished[dep] {
			return false
		}
	}
	return true
}
