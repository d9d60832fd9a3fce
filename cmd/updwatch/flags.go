package main

import "time"

// Flag structs decouple cobra from command logic for testing.

// GlobalFlags holds the persistent flags shared by all subcommands
type GlobalFlags struct {
	ConfigPath string
}

type CheckFlags struct {
	JSON bool
}

type StatusFlags struct {
	JSON bool
	// Remote daemon connection
	APIUrl     string
	APIToken   string
	APITimeout time.Duration
	Insecure   bool
}

type RunsFlags struct {
	Server string
	Since  time.Duration
	Limit  int
	JSON   bool
	// Remote daemon connection
	APIUrl     string
	APIToken   string
	APITimeout time.Duration
	Insecure   bool
}

type ServeFlags struct {
	ConfigPath string
	Daemonize  bool
	PidFile    string
	LogFile    string
}

type NotifyTestFlags struct {
	Message string
}

type InitFlags struct {
	Type   string
	Server string
	Output string
	Force  bool
}

type TokenIssueFlags struct {
	Subject string
	TTL     time.Duration
}
