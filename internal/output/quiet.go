package output

import (
	"fmt"
	"io"
)

// QuietFormatter prints only the response text (for pipes and scripts)
type QuietFormatter struct{}

func (f *QuietFormatter) Format(result *Result, w io.Writer) error {
	_, err := fmt.Fprintln(w, result.Response)
	return err
}
