package app

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"no args defaults to serve", nil, CommandServe},
		{"serve", []string{"serve"}, CommandServe},
		{"worker", []string{"worker"}, CommandWorker},
		{"migrate", []string{"migrate"}, CommandMigrate},
		{"rollback", []string{"rollback"}, CommandRollback},
		{"healthcheck", []string{"healthcheck"}, CommandHealthcheck},
		{"unknown defaults to serve", []string{"unknown"}, CommandServe},
		{"extra args ignored", []string{"worker", "--flag", "value"}, CommandWorker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCommand(tt.args); got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseArgs_RollbackSteps(t *testing.T) {
	tests := []struct {
		args []string
		want int
	}{
		{[]string{"rollback"}, 1},
		{[]string{"rollback", "3"}, 3},
		{[]string{"rollback", "0"}, 1},
		{[]string{"rollback", "abc"}, 1},
	}

	for _, tt := range tests {
		inv := ParseArgs(tt.args)
		if inv.Command != CommandRollback || inv.Steps != tt.want {
			t.Errorf("ParseArgs(%v) = %+v, want rollback with %d steps", tt.args, inv, tt.want)
		}
	}

	if inv := ParseArgs([]string{"migrate", "3"}); inv.Steps != 0 {
		t.Errorf("Steps = %d, want 0 for non-rollback commands", inv.Steps)
	}
}
