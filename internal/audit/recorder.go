package audit

import "errors"

// Recorder receives committed employee mutations. *Journal is one.
type Recorder interface {
	Record(entry Entry) error
}

type multiRecorder []Recorder

// Multi sends every entry to all recorders, even when an earlier one fails.
// The returned error joins every failure.
func Multi(recorders ...Recorder) Recorder {
	return multiRecorder(recorders)
}

func (m multiRecorder) Record(entry Entry) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
