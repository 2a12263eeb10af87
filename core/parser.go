package core

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tdewolff/parse/v2/strconv"
)

// maxNesting bounds array and dictionary nesting while parsing.
const maxNesting = 512

// Parser parses PDF objects using a Lexer for tokenization. It keeps one
// token of lookahead, read on demand, so the raw bytes after a dictionary
// are never tokenized before the parser knows whether a stream follows.
type Parser struct {
	lexer    *Lexer
	tok      *Token
	resolver ReferenceResolver
	policy   Policy
}

// NewParser creates a new PDF parser for the given reader.
func NewParser(r io.Reader) *Parser {
	return &Parser{lexer: NewLexer(r)}
}

// NewParserAt creates a parser positioned at offset in r.
func NewParserAt(r io.ReaderAt, offset int64) *Parser {
	return &Parser{lexer: NewLexerAt(r, offset)}
}

// SetReferenceResolver sets the document that owns the references this
// parser produces. It is also used to resolve indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// SetPolicy sets the strictness and warning sink used for recoverable
// inconsistencies such as duplicate dictionary keys.
func (p *Parser) SetPolicy(policy Policy) {
	p.policy = policy
}

// Seek repositions the parser at an absolute offset.
func (p *Parser) Seek(offset int64) {
	p.tok = nil
	p.lexer.Seek(offset)
}

// Pos returns the offset of the next unconsumed token.
func (p *Parser) Pos() int64 {
	if p.tok != nil {
		return p.tok.Pos
	}
	return p.lexer.Pos()
}

// peek returns the next non-comment token without consuming it.
func (p *Parser) peek() (*Token, error) {
	for p.tok == nil {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type != TokenComment {
			p.tok = tok
		}
	}
	return p.tok, nil
}

// next consumes and returns the next non-comment token.
func (p *Parser) next() (*Token, error) {
	tok, err := p.peek()
	p.tok = nil
	return tok, err
}

// ParseObject parses and returns the next PDF object from the input.
// A dictionary followed by the stream keyword is returned as a *Stream.
// At the end of input the returned error wraps both ErrSyntax and io.EOF.
func (p *Parser) ParseObject() (Object, error) {
	obj, err := p.parseValue(0)
	if err != nil {
		return nil, err
	}
	if dict, ok := obj.(Dict); ok && p.tok == nil && p.atStreamKeyword() {
		return p.parseStream(dict)
	}
	return obj, nil
}

func (p *Parser) parseValue(depth int) (Object, error) {
	if depth > maxNesting {
		return nil, syntaxError(p.Pos(), "objects nested deeper than %d levels", maxNesting)
	}

	tok, err := p.next()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenEOF:
		return nil, fmt.Errorf("%w: unexpected end of input at offset %d: %w", ErrSyntax, tok.Pos, io.EOF)

	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			return Null{}, nil
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return nil, syntaxError(tok.Pos, "unexpected keyword %q", tok.Value)

	case TokenInteger:
		if i, n := strconv.ParseInt(tok.Value); n == len(tok.Value) && n > 0 {
			return Int(i), nil
		}
		// Out of int64 range; keep the value as a real.
		return parseReal(tok)

	case TokenReal:
		return parseReal(tok)

	case TokenIndirectRef:
		return p.parseReference(tok)

	case TokenString, TokenHexString:
		return NewStringObject(tok.Value), nil

	case TokenName:
		return Name(tok.Value), nil

	case TokenArrayStart:
		return p.parseArray(depth)

	case TokenDictStart:
		return p.parseDict(depth)
	}

	return nil, syntaxError(tok.Pos, "unexpected token %s", tok.Type)
}

func parseReal(tok *Token) (Object, error) {
	f, n := strconv.ParseFloat(tok.Value)
	if n == 0 || n != len(tok.Value) {
		return nil, syntaxError(tok.Pos, "invalid number %q", tok.Value)
	}
	return Real(f), nil
}

// parseReference converts a "num gen" reference token into an IndirectRef
// owned by the parser's resolver.
func (p *Parser) parseReference(tok *Token) (Object, error) {
	fields := bytes.Fields(tok.Value)
	if len(fields) != 2 {
		return nil, syntaxError(tok.Pos, "malformed reference %q", tok.Value)
	}
	num, n1 := strconv.ParseUint(fields[0])
	gen, n2 := strconv.ParseUint(fields[1])
	if n1 != len(fields[0]) || n2 != len(fields[1]) {
		return nil, syntaxError(tok.Pos, "malformed reference %q", tok.Value)
	}
	return IndirectRef{Number: int(num), Generation: int(gen), Owner: p.resolver}, nil
}

// parseArray parses a PDF array "[obj1 obj2 ...]".
func (p *Parser) parseArray(depth int) (Object, error) {
	arr := Array{}
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			p.tok = nil
			return arr, nil
		case TokenEOF:
			return nil, syntaxError(tok.Pos, "unterminated array")
		}

		obj, err := p.parseValue(depth + 1)
		if err != nil {
			return nil, fmt.Errorf("array element %d: %w", len(arr), err)
		}
		arr = append(arr, obj)
	}
}

// parseDict parses a PDF dictionary "<< /Key value ... >>". A repeated key
// keeps its first value.
func (p *Parser) parseDict(depth int) (Object, error) {
	dict := make(Dict)
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenEOF:
			return nil, syntaxError(tok.Pos, "unterminated dictionary")
		case TokenName:
		default:
			return nil, syntaxError(tok.Pos, "dictionary key must be a name, got %s", tok.Type)
		}

		key := string(tok.Value)
		value, err := p.parseValue(depth + 1)
		if err != nil {
			return nil, fmt.Errorf("dictionary value for /%s: %w", key, err)
		}

		if _, dup := dict[key]; dup {
			if err := p.policy.Inconsistent(tok.Pos, "multiple definitions in dictionary for key /%s", key); err != nil {
				return nil, err
			}
			continue
		}
		dict[key] = value
	}
}

// atStreamKeyword reports whether the stream keyword follows, skipping
// whitespace before it.
func (p *Parser) atStreamKeyword() bool {
	p.lexer.SkipWhitespace()
	if !p.lexer.HasPrefix("stream") {
		return false
	}
	b, _ := p.lexer.peekN(7)
	return len(b) == 6 || !isAlpha(b[6])
}

// parseStream reads the payload following the stream keyword. Exactly
// /Length bytes are read; when endstream begins on the last of those bytes
// the length is taken to be one byte too long.
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	start := p.lexer.Pos()
	p.lexer.SkipBytes(len("stream"))

	// Some producers put spaces between the keyword and the EOL.
	b, err := p.lexer.Peek()
	for err == nil && b == ' ' {
		p.lexer.ReadByte()
		b, err = p.lexer.Peek()
	}
	switch {
	case err != nil:
		return nil, syntaxError(p.lexer.Pos(), "unexpected end of input after stream keyword")
	case b == '\n':
		p.lexer.ReadByte()
	case b == '\r':
		p.lexer.ReadByte()
		if next, err := p.lexer.Peek(); err == nil && next == '\n' {
			p.lexer.ReadByte()
		}
	default:
		return nil, syntaxError(p.lexer.Pos(), "stream keyword not followed by end of line")
	}

	length, err := p.streamLength(dict, start)
	if err != nil {
		return nil, err
	}

	data, err := p.lexer.ReadBytes(length)
	if err != nil {
		return nil, fmt.Errorf("reading stream data: %w", err)
	}

	end := p.lexer.Pos()
	p.lexer.SkipWhitespace()
	if !p.lexer.HasPrefix("endstream") {
		p.lexer.Seek(end - 1)
		if length == 0 || !p.lexer.HasPrefix("endstream") {
			return nil, syntaxError(end, "unable to find endstream marker after stream data")
		}
		data = data[:length-1]
		p.policy.Warn(end, "stream /Length %d overshoots endstream by one byte", length)
	}
	p.lexer.SkipBytes(len("endstream"))

	return &Stream{Dict: dict, Data: data}, nil
}

// streamLength reads /Length, resolving an indirect value through the
// resolver. The resolver parses at its own offset, leaving this parser's
// position alone.
func (p *Parser) streamLength(dict Dict, pos int64) (int, error) {
	var length Object
	switch v := dict.Raw("Length").(type) {
	case nil:
		return 0, syntaxError(pos, "stream dictionary missing /Length")
	case IndirectRef:
		if v.Owner == nil {
			v.Owner = p.resolver
		}
		if v.Owner == nil {
			return 0, syntaxError(pos, "indirect stream /Length %s without a document to resolve it", v)
		}
		resolved, err := v.Resolve()
		if err != nil {
			return 0, fmt.Errorf("resolving stream /Length %s: %w", v, err)
		}
		length = resolved
	default:
		length = v
	}

	n, ok := length.(Int)
	if !ok || n < 0 {
		return 0, syntaxError(pos, "invalid stream /Length %v", length)
	}
	return int(n), nil
}

// ParseIndirectObject parses an indirect object definition
// "num gen obj <object> endobj". The returned reference carries the
// header's number and generation so callers can validate them.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	num, err := p.parseHeaderInt("object number")
	if err != nil {
		return nil, err
	}
	gen, err := p.parseHeaderInt("generation number")
	if err != nil {
		return nil, err
	}

	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenKeyword || string(tok.Value) != "obj" {
		return nil, syntaxError(tok.Pos, "expected obj keyword, got %s %q", tok.Type, tok.Value)
	}

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
	}

	tok, err = p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Type == TokenKeyword && string(tok.Value) == "endobj" {
		p.tok = nil
	} else if err := p.policy.Inconsistent(tok.Pos, "object %d %d is missing endobj", num, gen); err != nil {
		return nil, err
	}

	return &IndirectObject{
		Ref:    IndirectRef{Number: num, Generation: gen, Owner: p.resolver},
		Object: obj,
	}, nil
}

func (p *Parser) parseHeaderInt(what string) (int, error) {
	tok, err := p.next()
	if err != nil {
		return 0, err
	}
	if tok.Type != TokenInteger {
		return 0, syntaxError(tok.Pos, "expected %s, got %s %q", what, tok.Type, tok.Value)
	}
	v, n := strconv.ParseInt(tok.Value)
	if n != len(tok.Value) || v < 0 {
		return 0, syntaxError(tok.Pos, "invalid %s %q", what, tok.Value)
	}
	return int(v), nil
}
