package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/noodle-lang/nbc/vm"
)

// ParseListing reads a textual instruction listing: one instruction per
// line, opcode first, then whitespace-separated literal operands. Blank
// lines and '#' comments are skipped. The format mirrors the disassembler
// output minus indices and category columns.
func ParseListing(r io.Reader) ([]vm.Instruction, error) {
	var program []vm.Instruction
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		in, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		program = append(program, in)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading listing: %w", err)
	}
	return program, nil
}

func parseLine(line string) (vm.Instruction, error) {
	tokens, err := tokenize(line)
	if err != nil {
		return vm.Instruction{}, err
	}
	opcode := strings.ToUpper(tokens[0])
	category, ok := vm.OpcodeCategory(opcode)
	if !ok {
		return vm.Instruction{}, fmt.Errorf("unknown opcode %q", opcode)
	}
	operands := make([]vm.Value, 0, len(tokens)-1)
	for _, tok := range tokens[1:] {
		operands = append(operands, parseLiteral(tok))
	}
	return vm.Inst(category, opcode, operands...), nil
}

// tokenize splits a line on whitespace, keeping double-quoted strings
// together.
func tokenize(line string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inQuote := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			current.WriteRune(r)
		case !inQuote && (r == ' ' || r == '\t'):
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated string in %q", line)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty instruction")
	}
	return tokens, nil
}

// parseLiteral interprets one operand token: nil, booleans, integers,
// floats, quoted strings; anything else stays a bare string.
func parseLiteral(tok string) vm.Value {
	switch tok {
	case "nil":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if strings.HasPrefix(tok, `"`) && strings.HasSuffix(tok, `"`) && len(tok) >= 2 {
		if unquoted, err := strconv.Unquote(tok); err == nil {
			return unquoted
		}
		return strings.Trim(tok, `"`)
	}
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return f
	}
	return tok
}
