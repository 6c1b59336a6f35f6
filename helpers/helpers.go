package helpers

import (
	// Go Internal Packages
	"encoding/json"
	"io"
)

// PrintStruct writes v to w as indented JSON followed by a newline.
func PrintStruct(w io.Writer, v any) error {
	res, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	res = append(res, '\n')
	_, err = w.Write(res)
	return err
}
