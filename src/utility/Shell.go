package utility

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Shell runs compositor queries and capture commands
type Shell struct {
	logger *Logger
}

// Result contains the output of a command execution
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
	Command  string
}

// ExecOptions configures command execution
type ExecOptions struct {
	Timeout        time.Duration
	StdoutCallback func(line string)
	StderrCallback func(line string)
	Env            map[string]string
	WorkDir        string
	UseSudo        bool
}

// NewShell creates a new Shell executor
func NewShell(logger *Logger) *Shell {
	return &Shell{logger: logger}
}

// Execute runs a command with the given options
func (s *Shell) Execute(ctx context.Context, command string, opts *ExecOptions) (*Result, error) {
	if opts == nil {
		opts = &ExecOptions{
			Timeout: 30 * time.Second,
		}
	}

	// Set default timeout if not specified
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	// Add sudo if requested
	if opts.UseSudo {
		command = fmt.Sprintf("sudo %s", command)
	}

	// Create context with timeout
	execCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	startTime := time.Now()

	// Create command
	cmd := exec.CommandContext(execCtx, "bash", "-c", command)

	// Set working directory
	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}

	// Set environment variables
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), s.envMapToSlice(opts.Env)...)
	}

	// Create stdout and stderr pipes
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	// Start the command
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	// Capture stdout
	var stdoutBuf bytes.Buffer
	stdoutDone := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(stdoutPipe)
		for scanner.Scan() {
			line := scanner.Text()
			stdoutBuf.WriteString(line + "\n")
			if opts.StdoutCallback != nil {
				opts.StdoutCallback(line)
			}
		}
		close(stdoutDone)
	}()

	// Capture stderr
	var stderrBuf bytes.Buffer
	stderrDone := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(stderrPipe)
		for scanner.Scan() {
			line := scanner.Text()
			stderrBuf.WriteString(line + "\n")
			if opts.StderrCallback != nil {
				opts.StderrCallback(line)
			}
		}
		close(stderrDone)
	}()

	// Wait for output reading to complete
	<-stdoutDone
	<-stderrDone

	// Wait for command to complete
	err = cmd.Wait()
	duration := time.Since(startTime)

	result := &Result{
		ExitCode: 0,
		Stdout:   strings.TrimSpace(stdoutBuf.String()),
		Stderr:   strings.TrimSpace(stderrBuf.String()),
		TimedOut: false,
		Duration: duration,
		Command:  command,
	}

	// Check if command timed out
	if execCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		return result, fmt.Errorf("command timed out after %v", opts.Timeout)
	}

	// Get exit code
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			return result, fmt.Errorf("command failed: %w", err)
		}
	}

	return result, nil
}

// envMapToSlice converts a map of environment variables to a slice
func (s *Shell) envMapToSlice(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for key, value := range env {
		result = append(result, fmt.Sprintf("%s=%s", key, value))
	}
	return result
}

// ExecWithTimeout runs a command with a specific timeout
func (s *Shell) ExecWithTimeout(ctx context.Context, command string, timeout time.Duration) (*Result, error) {
	return s.Execute(ctx, command, &ExecOptions{Timeout: timeout})
}

// Process is a long-running command started by Spawn
type Process struct {
	Command string

	cmd      *exec.Cmd
	done     chan struct{}
	mu       sync.Mutex
	stderr   bytes.Buffer
	exitCode int
	waitErr  error
	signaled bool
	stopping bool
}

// Spawn starts command in the background without waiting for it. Timeout is
// ignored; the process runs until it exits or Stop is called.
func (s *Shell) Spawn(command string, opts *ExecOptions) (*Process, error) {
	if opts == nil {
		opts = &ExecOptions{}
	}
	if opts.UseSudo {
		command = fmt.Sprintf("sudo %s", command)
	}

	cmd := exec.Command("bash", "-c", command)
	// own process group so Stop reaches every command of the template
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), s.envMapToSlice(opts.Env)...)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	p := &Process{
		Command: command,
		cmd:     cmd,
		done:    make(chan struct{}),
	}

	if s.logger != nil {
		s.logger.Debug("Spawned pid %d: %s", cmd.Process.Pid, command)
	}

	go func() {
		scanner := bufio.NewScanner(stderrPipe)
		for scanner.Scan() {
			line := scanner.Text()
			p.mu.Lock()
			p.stderr.WriteString(line + "\n")
			p.mu.Unlock()
			if opts.StderrCallback != nil {
				opts.StderrCallback(line)
			}
		}

		err := cmd.Wait()
		p.mu.Lock()
		p.waitErr = err
		if exitErr, ok := err.(*exec.ExitError); ok {
			p.exitCode = exitErr.ExitCode()
			p.signaled = killedBySignal(exitErr)
		} else if err != nil {
			p.exitCode = -1
		}
		p.mu.Unlock()
		close(p.done)
	}()

	return p, nil
}

// Done is closed once the process has exited
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Pid returns the process id
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// ExitCode returns the exit code once the process has exited
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// Killed reports whether the process was terminated by a signal, either
// directly or as reported by the bash wrapper (128+SIGINT, 128+SIGTERM)
func (p *Process) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signaled
}

func killedBySignal(exitErr *exec.ExitError) bool {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return true
	}
	switch exitErr.ExitCode() {
	case 128 + int(syscall.SIGINT), 128 + int(syscall.SIGTERM):
		return true
	}
	return false
}

// Stderr returns the stderr collected so far
func (p *Process) Stderr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.TrimSpace(p.stderr.String())
}

// Stopped reports whether Stop was called
func (p *Process) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopping
}

// Stop interrupts the process group and kills whatever is left of it once
// the process exits or grace elapses
func (p *Process) Stop(grace time.Duration) {
	p.mu.Lock()
	if p.stopping {
		p.mu.Unlock()
		return
	}
	p.stopping = true
	p.mu.Unlock()

	pgid := p.cmd.Process.Pid
	select {
	case <-p.done:
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		return
	default:
	}

	_ = syscall.Kill(-pgid, syscall.SIGINT)
	go func() {
		select {
		case <-p.done:
		case <-time.After(grace):
		}
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	}()
}
