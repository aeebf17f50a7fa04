package models

// ParentRef points at the parent of a comment: either the story itself
// (top-level comment) or another comment.
type ParentRef struct {
	ID      int64 // internal item ID
	StoryID int64 // internal ID of the tree's root story
	Depth   int32 // depth of the parent; 0 for a story
}

// StoryParent returns a reference to a story as parent
func StoryParent(storyID int64) ParentRef {
	return ParentRef{ID: storyID, StoryID: storyID, Depth: 0}
}

// CommentParent returns a reference to a comment as parent
func CommentParent(commentID, storyID int64, depth int32) ParentRef {
	return ParentRef{ID: commentID, StoryID: storyID, Depth: depth}
}

// IsStory reports whether the parent is the root story
func (p ParentRef) IsStory() bool {
	return p.Depth == 0
}

// ChildDepth returns the depth a child of this parent sits at
func (p ParentRef) ChildDepth() int32 {
	return p.Depth + 1
}
