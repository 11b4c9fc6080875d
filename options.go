package ffs

// Option configures a Mount at Format/Restore time, the same functional
// option shape as the teacher's Option (options.go).
type Option func(mnt *Mount) error

// WithInodePoolSize overrides the default fixed inode pool capacity.
func WithInodePoolSize(n int) Option {
	return func(mnt *Mount) error {
		mnt.inodePoolSize = n
		return nil
	}
}

// WithBlockPoolSize overrides the default fixed block pool capacity.
func WithBlockPoolSize(n int) Option {
	return func(mnt *Mount) error {
		mnt.blockPoolSize = n
		return nil
	}
}

// WithFilePoolSize overrides the default fixed open-file-handle pool capacity.
func WithFilePoolSize(n int) Option {
	return func(mnt *Mount) error {
		mnt.filePoolSize = n
		return nil
	}
}

// WithLogger installs a Logger other than the package default (which
// discards output). The teacher logs unconditionally via log.Printf
// (inode.go, tablereader.go); we make the sink swappable per-Mount instead
// of writing to the global logger, since tests mount many independent
// instances (see DESIGN.md "Global mount state").
func WithLogger(l Logger) Option {
	return func(mnt *Mount) error {
		mnt.log = l
		return nil
	}
}
