package faults

import (
	xmlrpc "github.com/ochinchina/gorilla-xmlrpc/xml"
)

const (
	UNKNOWN_METHOD       = 1
	INCORRECT_PARAMETERS = 2
	BAD_ARGUMENTS        = 3
	SHUTDOWN_STATE       = 6
	BAD_NAME             = 10
	BAD_CLASS            = 12
	FAILED               = 30
	ABNORMAL_TERMINATION = 40
	SPAWN_ERROR          = 50
	ALREADY_ACTIVE       = 60
	NOT_ACTIVE           = 70
	SUCCESS              = 80
	STILL_ACTIVE         = 91
	CANT_REREAD          = 92
)

func NewFault(code int, desc string) error {
	return &xmlrpc.Fault{Code: code, String: desc}
}
