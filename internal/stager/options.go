package stager

// Dir sets the directory uploads are staged in
func Dir(v string) func(*Stager) {
	return func(s *Stager) {
		s.dir = v
	}
}

// MaxSize sets the maximum accepted upload size in bytes, 0 disables the limit
func MaxSize(v int64) func(*Stager) {
	return func(s *Stager) {
		s.maxSize = v
	}
}
