package core

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"regexp"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenWhitespace
	TokenComment
	TokenKeyword     // true, false, null, obj, endobj, stream, endstream, etc.
	TokenInteger     // 123
	TokenReal        // 3.14
	TokenString      // (hello)
	TokenHexString   // <48656C6C6F>
	TokenName        // /Type
	TokenArrayStart  // [
	TokenArrayEnd    // ]
	TokenDictStart   // <<
	TokenDictEnd     // >>
	TokenIndirectRef // 12 0 R, Value holds "12 0"
)

func (t TokenType) String() string {
	names := [...]string{
		"EOF", "Whitespace", "Comment", "Keyword", "Integer", "Real", "String",
		"HexString", "Name", "ArrayStart", "ArrayEnd", "DictStart", "DictEnd", "IndirectRef",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64 // Position in stream
}

func (t *Token) String() string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %q at %d", t.Type, t.Value, t.Pos)
}

// refWindow is how far the lexer looks ahead to recognise "num gen R".
const refWindow = 32

var refPattern = regexp.MustCompile(`^(\d+)[\x00\t\n\f\r ]+(\d+)[\x00\t\n\f\r ]+R`)

// Lexer performs lexical analysis of PDF content over a random-access
// source. Positions are absolute offsets into that source.
type Lexer struct {
	src    io.ReaderAt
	reader *bufio.Reader
	pos    int64
	err    error
}

// NewLexer creates a new lexer. Sources that support io.ReaderAt and
// io.Seeker are read in place from their current offset; anything else is
// read into memory first.
func NewLexer(r io.Reader) *Lexer {
	if ra, ok := r.(io.ReaderAt); ok {
		var start int64
		if s, ok := r.(io.Seeker); ok {
			if cur, err := s.Seek(0, io.SeekCurrent); err == nil {
				start = cur
			}
		}
		return NewLexerAt(ra, start)
	}

	data, err := io.ReadAll(r)
	l := NewLexerAt(bytes.NewReader(data), 0)
	l.err = err
	return l
}

// NewLexerAt creates a lexer positioned at offset in r.
func NewLexerAt(r io.ReaderAt, offset int64) *Lexer {
	l := &Lexer{src: r}
	l.Seek(offset)
	return l
}

// Seek moves the lexer to an absolute offset, discarding buffered input.
func (l *Lexer) Seek(offset int64) {
	section := io.NewSectionReader(l.src, offset, math.MaxInt64-offset)
	if l.reader == nil {
		l.reader = bufio.NewReader(section)
	} else {
		l.reader.Reset(section)
	}
	l.pos = offset
}

// Pos returns the absolute offset of the next unread byte.
func (l *Lexer) Pos() int64 {
	return l.pos
}

// syntaxError builds an ErrSyntax error at the given offset.
func syntaxError(pos int64, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s at offset %d", ErrSyntax, fmt.Sprintf(format, args...), pos)
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() (*Token, error) {
	if l.err != nil {
		return nil, l.err
	}

	l.skipWhitespace()

	b, err := l.peek()
	if err == io.EOF {
		return &Token{Type: TokenEOF, Pos: l.pos}, nil
	}
	if err != nil {
		return nil, err
	}

	switch b {
	case '%':
		return l.readComment()
	case '[':
		l.readByte()
		return &Token{Type: TokenArrayStart, Value: []byte{'['}, Pos: l.pos - 1}, nil
	case ']':
		l.readByte()
		return &Token{Type: TokenArrayEnd, Value: []byte{']'}, Pos: l.pos - 1}, nil
	case '(':
		return l.readString()
	case '<':
		// Could be << (dict start) or <hex string>
		next, err := l.peekN(2)
		if err == nil && len(next) == 2 && next[1] == '<' {
			l.readByte()
			l.readByte()
			return &Token{Type: TokenDictStart, Value: []byte{'<', '<'}, Pos: l.pos - 2}, nil
		}
		return l.readHexString()
	case '>':
		next, err := l.peekN(2)
		if err == nil && len(next) == 2 && next[1] == '>' {
			l.readByte()
			l.readByte()
			return &Token{Type: TokenDictEnd, Value: []byte{'>', '>'}, Pos: l.pos - 2}, nil
		}
		return nil, syntaxError(l.pos, "unexpected '>'")
	case '/':
		return l.readName()
	}

	if isDigit(b) {
		if tok := l.readReference(); tok != nil {
			return tok, nil
		}
	}

	if isDigit(b) || b == '-' || b == '+' || b == '.' {
		return l.readNumber()
	}

	if isAlpha(b) {
		return l.readKeyword()
	}

	return nil, syntaxError(l.pos, "unexpected character %q", b)
}

// readReference consumes "num gen R" when it appears next and is not the
// start of a longer keyword such as "RG".
func (l *Lexer) readReference() *Token {
	window, _ := l.peekN(refWindow)
	m := refPattern.FindSubmatchIndex(window)
	if m == nil {
		return nil
	}
	end := m[1]
	if end < len(window) && isAlpha(window[end]) {
		return nil
	}

	value := make([]byte, 0, m[3]-m[2]+1+m[5]-m[4])
	value = append(value, window[m[2]:m[3]]...)
	value = append(value, ' ')
	value = append(value, window[m[4]:m[5]]...)

	start := l.pos
	l.SkipBytes(end)
	return &Token{Type: TokenIndirectRef, Value: value, Pos: start}
}

// readByte reads a single byte and advances position
func (l *Lexer) readByte() (byte, error) {
	b, err := l.reader.ReadByte()
	if err != nil {
		return 0, err
	}
	l.pos++
	return b, nil
}

// peek looks at the next byte without consuming it
func (l *Lexer) peek() (byte, error) {
	b, err := l.reader.Peek(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// peekN looks at the next n bytes without consuming them. Fewer bytes are
// returned, with an error, near the end of input.
func (l *Lexer) peekN(n int) ([]byte, error) {
	return l.reader.Peek(n)
}

// skipWhitespace skips all whitespace characters
// PDF whitespace: space (0x20), tab (0x09), LF (0x0A), CR (0x0D), FF (0x0C), null (0x00)
func (l *Lexer) skipWhitespace() {
	for {
		b, err := l.peek()
		if err != nil || !isWhitespace(b) {
			return
		}
		l.readByte()
	}
}

// readComment reads a comment (% to end of line). The value excludes the %.
func (l *Lexer) readComment() (*Token, error) {
	startPos := l.pos
	var buf bytes.Buffer

	l.readByte() // %

	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		// Comments end at CR or LF
		if b == '\r' || b == '\n' {
			l.readByte()
			if b == '\r' {
				if next, err := l.peek(); err == nil && next == '\n' {
					l.readByte()
				}
			}
			break
		}

		l.readByte()
		buf.WriteByte(b)
	}

	return &Token{Type: TokenComment, Value: buf.Bytes(), Pos: startPos}, nil
}

// readString reads a literal string (hello)
func (l *Lexer) readString() (*Token, error) {
	startPos := l.pos
	var buf bytes.Buffer

	l.readByte() // (

	depth := 1
	for depth > 0 {
		b, err := l.readByte()
		if err == io.EOF {
			return nil, syntaxError(startPos, "unterminated literal string")
		}
		if err != nil {
			return nil, err
		}

		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(b)
			}
		case '\\':
			next, err := l.readByte()
			if err == io.EOF {
				return nil, syntaxError(startPos, "unterminated literal string")
			}
			if err != nil {
				return nil, err
			}
			switch next {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '(', ')', '\\':
				buf.WriteByte(next)
			case '\r', '\n':
				// Line continuation
				if next == '\r' {
					if peek, err := l.peek(); err == nil && peek == '\n' {
						l.readByte()
					}
				}
			case '0', '1', '2', '3', '4', '5', '6', '7':
				// Octal escape \d, \dd or \ddd; overflow wraps
				val := next - '0'
				for i := 0; i < 2; i++ {
					peek, err := l.peek()
					if err != nil || !isOctalDigit(peek) {
						break
					}
					l.readByte()
					val = val*8 + (peek - '0')
				}
				buf.WriteByte(val)
			default:
				// Unknown escape - keep the character
				buf.WriteByte(next)
			}
		default:
			buf.WriteByte(b)
		}
	}

	return &Token{Type: TokenString, Value: buf.Bytes(), Pos: startPos}, nil
}

// readHexString reads a hexadecimal string <48656C6C6F> and returns the
// decoded bytes. A final odd digit is padded with 0.
func (l *Lexer) readHexString() (*Token, error) {
	startPos := l.pos
	var buf bytes.Buffer

	l.readByte() // <

	var high byte
	pending := false
	for {
		b, err := l.readByte()
		if err == io.EOF {
			return nil, syntaxError(startPos, "hex string missing '>'")
		}
		if err != nil {
			return nil, err
		}

		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		if !isHexDigit(b) {
			return nil, syntaxError(l.pos-1, "invalid hex digit %q", b)
		}

		if pending {
			buf.WriteByte(high<<4 | hexValue(b))
			pending = false
		} else {
			high = hexValue(b)
			pending = true
		}
	}
	if pending {
		buf.WriteByte(high << 4)
	}

	return &Token{Type: TokenHexString, Value: buf.Bytes(), Pos: startPos}, nil
}

// readName reads a name object /Type, decoding #xx escapes
func (l *Lexer) readName() (*Token, error) {
	startPos := l.pos
	var buf bytes.Buffer

	l.readByte() // /

	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		// Names end at whitespace or delimiters
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.readByte()

		if b == '#' {
			if hex, err := l.peekN(2); err == nil && isHexDigit(hex[0]) && isHexDigit(hex[1]) {
				l.readByte()
				l.readByte()
				buf.WriteByte(hexValue(hex[0])<<4 | hexValue(hex[1]))
				continue
			}
		}
		buf.WriteByte(b)
	}

	return &Token{Type: TokenName, Value: buf.Bytes(), Pos: startPos}, nil
}

// readNumber reads an integer or real number
func (l *Lexer) readNumber() (*Token, error) {
	startPos := l.pos
	var buf bytes.Buffer
	hasDecimal := false

	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if b == '.' {
			if hasDecimal {
				break // Second decimal point - not part of this number
			}
			hasDecimal = true
		} else if !isDigit(b) && !(buf.Len() == 0 && (b == '-' || b == '+')) {
			break
		}
		l.readByte()
		buf.WriteByte(b)
	}

	tokenType := TokenInteger
	if hasDecimal {
		tokenType = TokenReal
	}

	return &Token{Type: tokenType, Value: buf.Bytes(), Pos: startPos}, nil
}

// readKeyword reads a keyword (true, false, null, obj, endobj, etc.)
func (l *Lexer) readKeyword() (*Token, error) {
	startPos := l.pos
	var buf bytes.Buffer

	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !isAlpha(b) && !isDigit(b) {
			break
		}
		l.readByte()
		buf.WriteByte(b)
	}

	return &Token{Type: TokenKeyword, Value: buf.Bytes(), Pos: startPos}, nil
}

// Helper functions

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' || b == '[' || b == ']' ||
		b == '{' || b == '}' || b == '/' || b == '%'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isOctalDigit(b byte) bool {
	return b >= '0' && b <= '7'
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func hexValue(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

// ReadBytes reads exactly n bytes. It is used for stream payloads.
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	data := make([]byte, n)
	read, err := io.ReadFull(l.reader, data)
	l.pos += int64(read)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return data[:read], syntaxError(l.pos, "unexpected end of data: expected %d bytes, got %d", n, read)
	}
	if err != nil {
		return data[:read], err
	}
	return data, nil
}

// SkipBytes skips exactly n bytes
func (l *Lexer) SkipBytes(n int) error {
	skipped, err := l.reader.Discard(n)
	l.pos += int64(skipped)
	return err
}

// HasPrefix reports whether the unread input starts with p.
func (l *Lexer) HasPrefix(p string) bool {
	b, _ := l.peekN(len(p))
	return string(b) == p
}

// SkipWhitespace skips whitespace and returns the new position.
func (l *Lexer) SkipWhitespace() int64 {
	l.skipWhitespace()
	return l.pos
}

// Peek returns the next byte without consuming it (public wrapper for peek)
func (l *Lexer) Peek() (byte, error) {
	return l.peek()
}

// ReadByte reads and returns a single byte (public wrapper for readByte)
func (l *Lexer) ReadByte() (byte, error) {
	return l.readByte()
}
