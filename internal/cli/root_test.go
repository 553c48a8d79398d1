package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetVersionInfo(t *testing.T) {
	origVersion := appVersion
	origCommit := appCommit
	origDate := appDate
	defer func() {
		appVersion = origVersion
		appCommit = origCommit
		appDate = origDate
	}()

	SetVersionInfo("1.2.3", "abc1234", "2026-02-13")

	if appVersion != "1.2.3" {
		t.Errorf("appVersion = %q, want 1.2.3", appVersion)
	}
	if appCommit != "abc1234" {
		t.Errorf("appCommit = %q, want abc1234", appCommit)
	}
	if appDate != "2026-02-13" {
		t.Errorf("appDate = %q, want 2026-02-13", appDate)
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"nonexistent-command"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()

	err := Execute()
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExecute_VersionSubcommand(t *testing.T) {
	origVersion := appVersion
	defer func() { appVersion = origVersion }()
	SetVersionInfo("0.4.0", "deadbee", "2026-05-01")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"version"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()

	if err := Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(stdout.String(), "kiya 0.4.0") {
		t.Errorf("output = %q, want version line", stdout.String())
	}
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	want := []string{"chat", "ask", "history", "tasks", "key", "knowledge", "serve", "mcp", "metrics", "alerts", "dashboard", "doctor", "version"}
	have := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestCommands_NotInitialized(t *testing.T) {
	useTestServices(t, false)
	Conversation = nil
	Tasks = nil
	Credentials = nil
	KnowledgeFile = nil

	cases := []struct {
		name string
		run  func() error
	}{
		{"ask", func() error { return askCmd.RunE(askCmd, []string{"hi"}) }},
		{"chat", func() error { return chatCmd.RunE(chatCmd, nil) }},
		{"history list", func() error { return historyListCmd.RunE(historyListCmd, nil) }},
		{"history clear", func() error { return historyClearCmd.RunE(historyClearCmd, nil) }},
		{"tasks", func() error { return tasksCmd.RunE(tasksCmd, nil) }},
		{"key status", func() error { return keyStatusCmd.RunE(keyStatusCmd, nil) }},
		{"knowledge list", func() error { return knowledgeListCmd.RunE(knowledgeListCmd, nil) }},
		{"serve", func() error { return serveCmd.RunE(serveCmd, nil) }},
		{"mcp serve", func() error { return mcpServeCmd.RunE(mcpServeCmd, nil) }},
		{"metrics", func() error { return metricsCmd.RunE(metricsCmd, nil) }},
		{"alerts", func() error { return alertsCmd.RunE(alertsCmd, nil) }},
		{"dashboard", func() error { return dashboardCmd.RunE(dashboardCmd, nil) }},
		{"doctor", func() error { return doctorCmd.RunE(doctorCmd, nil) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "not initialized") {
				t.Errorf("error = %q, want not initialized", err)
			}
		})
	}
}
