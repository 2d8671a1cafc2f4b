package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// passwordReader captures the database password without echoing it.
type passwordReader struct {
	in     *os.File
	out    io.Writer
	prompt string
	// fromStdin reads one line from in instead of requiring a terminal.
	fromStdin bool
}

func newPasswordReader(driver string, fromStdin bool) *passwordReader {
	return &passwordReader{
		in:        os.Stdin,
		out:       os.Stderr,
		prompt:    fmt.Sprintf("%s Password: ", driverDisplayName(driver)),
		fromStdin: fromStdin,
	}
}

func (p *passwordReader) read() (string, error) {
	if p.fromStdin {
		return readPasswordLine(p.in)
	}

	fd := int(p.in.Fd())
	if !term.IsTerminal(fd) {
		return "", stageErrorf(StageCredential, "stdin is not a terminal; use --password-stdin to pipe the password")
	}
	fmt.Fprint(p.out, p.prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", stageErrorf(StageCredential, "read password: %w", err)
	}
	return string(pw), nil
}

func readPasswordLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", stageErrorf(StageCredential, "read password from stdin: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" && err == io.EOF {
		return "", stageErrorf(StageCredential, "no password on stdin")
	}
	return line, nil
}

func driverDisplayName(driver string) string {
	src, err := newSourceDB(driver)
	if err != nil {
		return driver
	}
	return src.Name()
}
