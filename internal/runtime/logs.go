package runtime

// LogBuffer collects the lines of one transaction in append order.
// It implements program.LogChannel.
type LogBuffer struct {
	lines []string
}

// Append adds a line.
func (b *LogBuffer) Append(line string) {
	b.lines = append(b.lines, line)
}

// Lines returns a copy of the buffered lines.
func (b *LogBuffer) Lines() []string {
	return append([]string(nil), b.lines...)
}

// Len returns the number of buffered lines.
func (b *LogBuffer) Len() int {
	return len(b.lines)
}
