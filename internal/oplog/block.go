package oplog

import "strings"

// Block is the text of the last update operation recorded in a detail log.
// Offsets are byte offsets into the decoded log text; EndOffset points just
// past the completion marker. EndSeen distinguishes a malformed log (a
// completion marker with no start marker before it) from a log with no
// operation at all.
type Block struct {
	StartOffset int
	EndOffset   int
	Content     string
	Found       bool
	EndSeen     bool
}

// LocateLast finds the last complete operation block in text: the last
// occurrence of the completion marker, paired with the last start marker
// before it. Earlier operations in the same file are ignored on purpose, only
// the most recent attempt decides the verdict.
func LocateLast(text, start, completion string) Block {
	ei := strings.LastIndex(text, completion)
	if ei < 0 {
		return Block{}
	}
	end := ei + len(completion)
	si := strings.LastIndex(text[:ei], start)
	if si < 0 {
		return Block{EndOffset: end, EndSeen: true}
	}
	return Block{
		StartOffset: si,
		EndOffset:   end,
		Content:     text[si:end],
		Found:       true,
		EndSeen:     true,
	}
}
