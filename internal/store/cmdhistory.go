package store

import (
	"fmt"
	"os"
	"strings"
)

// AppendCmdHistory appends one "prompt: <instruct>\t<cmd>\n" line to
// .cmd_history for every generation the user accepts, matching
// original_source/common.py's save_history. Embedded tabs/newlines in
// either field are flattened so the file stays one record per line.
func AppendCmdHistory(path, instruct, cmd string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open cmd history %s: %w", path, err)
	}
	defer f.Close()
	line := fmt.Sprintf("prompt: %s\t%s\n", flatten(instruct), flatten(cmd))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write cmd history: %w", err)
	}
	return nil
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
