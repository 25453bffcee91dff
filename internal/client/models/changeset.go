package models

// ChangeSet is one batch of committed local mutations delivered to watchers.
type ChangeSet struct {
	Changed []Annotation
	Removed []Annotation
}

func (c ChangeSet) Empty() bool {
	return len(c.Changed) == 0 && len(c.Removed) == 0
}

// MergeResult counts what a remote merge did to the local store.
type MergeResult struct {
	Created int
	Updated int
}
