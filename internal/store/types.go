package store

import "time"

type Document struct {
	ID        int64
	URI       string
	Path      string
	Version   int32
	Hash      string
	LineCount int
	Skipped   int
	Errors    int
	RunID     string
	IndexedAt time.Time
}

type Symbol struct {
	ID             int64
	DocumentID     int64
	ParentSymbolID *int64
	Name           string
	NameKey        string
	Kind           string
	Detail         string
	Access         string
	ObjectID       int
	Section        string
	Extends        string
	SourceTable    string
	SignatureHash  string
	StartLine      int
	StartCol       int
	EndLine        int
	EndCol         int
	NameLine       int
	NameCol        int

	// URI is filled by queries that join documents; it is not a column.
	URI string
}

type Implementation struct {
	ID             int64
	ObjectSymbolID int64
	InterfaceName  string
	InterfaceKey   string
}

type Reference struct {
	ID         int64
	DocumentID int64
	NameKey    string
	Role       string
	Write      bool
	StartLine  int
	StartCol   int
	EndLine    int
	EndCol     int
}

// IndexRun records one export of a snapshot.
type IndexRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Documents  int // written this run
	Unchanged  int // skipped because the stored hash matched
	Removed    int // stored documents no longer in the snapshot
	Symbols    int
}
