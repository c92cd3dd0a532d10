package output

import (
	"fmt"
	"io"
)

// Separator frames the response in text output
const Separator = "------------------------------------"

// TextFormatter prints the response between separator lines
type TextFormatter struct{}

func (f *TextFormatter) Format(result *Result, w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s\n%s\n%s\n", Separator, result.Response, Separator)
	return err
}
