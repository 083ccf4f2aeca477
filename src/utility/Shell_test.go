package utility

import (
	"context"
	"os"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestExecute(t *testing.T) {
	shell := NewShell(NewLogger("silent", DEBUG))

	result, err := shell.Execute(context.Background(), "echo out; echo err >&2; exit 3", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", result.ExitCode)
	}
	if result.Stdout != "out" || result.Stderr != "err" {
		t.Errorf("Stdout = %q, Stderr = %q", result.Stdout, result.Stderr)
	}
}

func TestExecuteEnv(t *testing.T) {
	shell := NewShell(NewLogger("silent", DEBUG))

	result, err := shell.Execute(context.Background(), `echo "$DESKMIRROR_TEST"`, &ExecOptions{
		Env: map[string]string{"DESKMIRROR_TEST": "value"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Stdout != "value" {
		t.Errorf("Stdout = %q, want value", result.Stdout)
	}
}

func TestExecuteTimeout(t *testing.T) {
	shell := NewShell(NewLogger("silent", DEBUG))

	result, err := shell.ExecWithTimeout(context.Background(), "sleep 5", 100*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if result == nil || !result.TimedOut {
		t.Errorf("result = %+v, want TimedOut", result)
	}
}

func TestSpawnExit(t *testing.T) {
	shell := NewShell(NewLogger("silent", DEBUG))

	var lines []string
	proc, err := shell.Spawn("echo starting >&2; exit 4", &ExecOptions{
		StderrCallback: func(line string) { lines = append(lines, line) },
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	select {
	case <-proc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}

	if proc.ExitCode() != 4 {
		t.Errorf("ExitCode = %d, want 4", proc.ExitCode())
	}
	if proc.Stderr() != "starting" {
		t.Errorf("Stderr = %q, want starting", proc.Stderr())
	}
	if strings.Join(lines, "\n") != "starting" {
		t.Errorf("callback lines = %v", lines)
	}
	if proc.Stopped() {
		t.Error("Stopped = true without Stop")
	}
}

func TestSpawnStop(t *testing.T) {
	shell := NewShell(NewLogger("silent", DEBUG))

	proc, err := shell.Spawn("sleep 30", nil)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	proc.Stop(time.Second)
	proc.Stop(time.Second)

	select {
	case <-proc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process survived Stop")
	}
	if !proc.Stopped() {
		t.Error("Stopped = false after Stop")
	}
}

func TestSpawnKilled(t *testing.T) {
	tests := []struct {
		name    string
		command string
		signal  syscall.Signal
		killed  bool
	}{
		{"signal", "sleep 30", syscall.SIGTERM, true},
		{"wrapper reports SIGINT", "exit 130", 0, true},
		{"wrapper reports SIGTERM", "exit 143", 0, true},
		{"plain failure", "exit 2", 0, false},
	}

	shell := NewShell(NewLogger("silent", DEBUG))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, err := shell.Spawn(tt.command, nil)
			if err != nil {
				t.Fatalf("Spawn: %v", err)
			}
			if tt.signal != 0 {
				if err := syscall.Kill(proc.Pid(), tt.signal); err != nil {
					t.Fatalf("kill: %v", err)
				}
			}

			select {
			case <-proc.Done():
			case <-time.After(5 * time.Second):
				t.Fatal("process did not exit")
			}
			if proc.Killed() != tt.killed {
				t.Errorf("Killed = %v, want %v (exit %d)", proc.Killed(), tt.killed, proc.ExitCode())
			}
			if proc.Stopped() {
				t.Error("Stopped = true without Stop")
			}
		})
	}
}

func TestSpawnStopReachesBackgroundCommands(t *testing.T) {
	shell := NewShell(NewLogger("silent", DEBUG))

	pids := make(chan int, 1)
	proc, err := shell.Spawn("sleep 30 & echo $! >&2; wait", &ExecOptions{
		StderrCallback: func(line string) {
			if pid, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
				pids <- pid
			}
		},
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	var child int
	select {
	case child = <-pids:
	case <-time.After(5 * time.Second):
		t.Fatal("background pid not reported")
	}

	proc.Stop(200 * time.Millisecond)

	select {
	case <-proc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process survived Stop")
	}

	deadline := time.Now().Add(5 * time.Second)
	for processRunning(child) {
		if time.Now().After(deadline) {
			t.Fatalf("background command %d outlived Stop", child)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// processRunning reports whether pid exists and is not a zombie
func processRunning(pid int) bool {
	if syscall.Kill(pid, 0) != nil {
		return false
	}
	stat, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return false
	}
	fields := strings.Fields(string(stat[strings.LastIndexByte(string(stat), ')')+1:]))
	return len(fields) > 0 && fields[0] != "Z"
}
