package sshx

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/crypto/ssh"

	"hostwatch/internal/errors"
)

// ExecResult is the captured output of one remote command.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Exec runs a command on the remote host and returns the captured output.
// A non-zero exit code is reported in the result, not as an error; the
// error return covers transport failures and the context deadline.
func (c *Client) Exec(ctx context.Context, cmd string) (*ExecResult, error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, errors.Classify(err),
			fmt.Sprintf("Failed to open a session on '%s'", c.Alias))
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	// ssh.Session.Run blocks with no context support; closing the session
	// from the watcher goroutine unblocks it when the deadline hits.
	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case <-ctx.Done():
		_ = session.Close()
		<-done
		return nil, errors.Wrap(ctx.Err(), errors.ErrTimeout,
			fmt.Sprintf("Command on '%s' exceeded its time budget: %s", c.Alias, cmd))
	case err := <-done:
		result := &ExecResult{
			Stdout: stdoutBuf.String(),
			Stderr: stderrBuf.String(),
		}
		if err != nil {
			if exitErr, ok := err.(*ssh.ExitError); ok {
				result.ExitCode = exitErr.ExitStatus()
				return result, nil
			}
			return nil, errors.Wrap(err, errors.Classify(err),
				fmt.Sprintf("Failed to execute command on '%s': %s", c.Alias, cmd))
		}
		return result, nil
	}
}
