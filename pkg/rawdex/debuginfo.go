package rawdex

// DebugInfoItem holds the whole debug info section as one opaque blob.
// Code items may reference any position inside it.
type DebugInfoItem struct {
	size int
	data []byte
}

func (d *DebugInfoItem) Read(f *File) {
	f.Tracker().getNewBlobOffsettable(f, d, d.size)
	d.data = f.ReadBytes(d.size)
}

func (d *DebugInfoItem) Write(f *File) {
	f.Tracker().getNewBlobOffsettable(f, d, d.size)
	f.WriteBytes(d.data)
}

func (d *DebugInfoItem) IncrementIndex(IndexUpdateKind, int) {}

// Len returns the size of the blob in bytes.
func (d *DebugInfoItem) Len() int { return len(d.data) }
