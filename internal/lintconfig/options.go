package lintconfig

func Dir(v string) func(*Writer) {
	return func(w *Writer) {
		w.dir = v
	}
}

func FileName(v string) func(*Writer) {
	return func(w *Writer) {
		w.fileName = v
	}
}

// Extends sets the rule set the configuration extends
func Extends(v string) func(*Writer) {
	return func(w *Writer) {
		w.extends = v
	}
}
