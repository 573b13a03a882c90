package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mvchalupnik/qudi/types"
)

// Restful is the json REST interface of the daemon
type Restful struct {
	router *mux.Router
	qudi   *Qudi
}

func NewRestful(q *Qudi) *Restful {
	return &Restful{router: mux.NewRouter(), qudi: q}
}

func (sr *Restful) CreateHandler() http.Handler {
	sr.router.HandleFunc("/module/list", sr.ListModules).Methods("GET")
	sr.router.HandleFunc("/module/info/{name}", sr.ModuleInfo).Methods("GET")
	sr.router.HandleFunc("/module/activate/{name}", sr.ActivateModule).Methods("POST", "PUT")
	sr.router.HandleFunc("/module/deactivate/{name}", sr.DeactivateModule).Methods("POST", "PUT")
	sr.router.HandleFunc("/qudi/shutdown", sr.Shutdown).Methods("PUT", "POST")
	sr.router.HandleFunc("/qudi/reload", sr.Reload).Methods("PUT", "POST")
	return sr.router
}

// ListModules lists the status of all the modules
//
// json array to present the status of all modules
func (sr *Restful) ListModules(w http.ResponseWriter, req *http.Request) {
	result := struct{ AllModuleInfo []types.ModuleInfo }{make([]types.ModuleInfo, 0)}
	if sr.qudi.GetAllModuleInfo(nil, nil, &result) == nil {
		json.NewEncoder(w).Encode(result.AllModuleInfo)
	} else {
		r := map[string]bool{"success": false}
		json.NewEncoder(w).Encode(r)
	}
}

func (sr *Restful) ModuleInfo(w http.ResponseWriter, req *http.Request) {
	params := mux.Vars(req)
	result := struct{ ModInfo types.ModuleInfo }{}
	if err := sr.qudi.GetModuleInfo(nil, &struct{ Name string }{params["name"]}, &result); err != nil {
		w.WriteHeader(404)
		json.NewEncoder(w).Encode(map[string]bool{"success": false})
		return
	}
	json.NewEncoder(w).Encode(result.ModInfo)
}

func (sr *Restful) ActivateModule(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()
	params := mux.Vars(req)
	success, err := sr.changeModuleState("activate", params["name"])
	r := map[string]bool{"success": err == nil && success}
	json.NewEncoder(w).Encode(&r)
}

func (sr *Restful) DeactivateModule(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()
	params := mux.Vars(req)
	success, err := sr.changeModuleState("deactivate", params["name"])
	r := map[string]bool{"success": err == nil && success}
	json.NewEncoder(w).Encode(&r)
}

func (sr *Restful) changeModuleState(change string, name string) (bool, error) {
	args := StateChangeArgs{Name: name, Wait: true}
	result := struct{ Success bool }{false}
	var err error
	if change == "activate" {
		err = sr.qudi.ActivateModule(nil, &args, &result)
	} else {
		err = sr.qudi.DeactivateModule(nil, &args, &result)
	}
	return result.Success, err
}

func (sr *Restful) Shutdown(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()
	reply := struct{ Ret bool }{false}
	sr.qudi.Shutdown(nil, nil, &reply)
	w.Write([]byte("Shutdown..."))
}

func (sr *Restful) Reload(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()
	_, err := sr.qudi.Reload()
	r := map[string]bool{"success": err == nil}
	json.NewEncoder(w).Encode(&r)
}
