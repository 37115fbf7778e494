package shell

import (
	"github.com/fsp-go/fspgo"
	"github.com/fsp-go/fspgo/ast"
	"github.com/fsp-go/fspgo/eval"
	"github.com/fsp-go/fspgo/symbol"
	"github.com/fsp-go/fspgo/tenv"
)

// evalShellExpr parses and evaluates a shell-level integer expression
// (an `if`/`elif` condition, or the right-hand side of a variable
// assignment): the same C-style operator grammar eval.EvalExpr already
// implements over ast.Node trees, fed by a small tokenizer/parser
// local to this package. Shell-script text is a distinct
// micro-language from FSP source and has no parser of its own.
func (sh *Shell) evalShellExpr(text string) (int, error) {
	toks, err := tokenize(text)
	if err != nil {
		return 0, err
	}
	p := &exprParser{toks: toks}
	n, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.toks) {
		return 0, fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator, "unexpected trailing input in expression %q", text)
	}
	env := sh.exprEnv()
	r, err := eval.EvalExpr(n, env)
	if err != nil {
		return 0, err
	}
	return r.Int, nil
}

// exprEnv builds a throwaway translation environment whose symbol table
// holds the current shell variables as symbol.Integer bindings, so
// eval.EvalExpr's identifier lookup resolves them without shell
// variables ever leaking into the FSP program's own symbol table.
func (sh *Shell) exprEnv() *tenv.Env {
	syms := symbol.NewTable()
	for name, v := range sh.vars {
		syms.Insert(name, symbol.Integer{Value: v})
	}
	return tenv.NewEnv(syms)
}

// --- tokenizer --------------------------------------------------------

type tokKind int8

const (
	tokInt tokKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
	val  int
}

func tokenize(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case c >= '0' && c <= '9':
			j := i
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			v := 0
			for _, d := range s[i:j] {
				v = v*10 + int(d-'0')
			}
			toks = append(toks, token{kind: tokInt, val: v})
			i = j
		case isIdentStart(c):
			j := i
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: s[i:j]})
			i = j
		default:
			op, n, ok := lexOp(s[i:])
			if !ok {
				return nil, fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator, "unexpected character %q in expression", s[i])
			}
			toks = append(toks, token{kind: tokOp, text: op})
			i += n
		}
	}
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// twoCharOps must be checked before their one-character prefixes.
var twoCharOps = []string{"&&", "||", "==", "!=", "<=", ">=", "<<", ">>"}
var oneCharOps = "+-*/%|^&<>!"

func lexOp(s string) (op string, n int, ok bool) {
	if len(s) >= 2 {
		for _, o := range twoCharOps {
			if s[:2] == o {
				return o, 2, true
			}
		}
	}
	for _, c := range oneCharOps {
		if s[0] == byte(c) {
			return string(s[0]), 1, true
		}
	}
	return "", 0, false
}

// --- Pratt parser, producing ast.Node trees for eval.EvalExpr --------

// precedence follows the C operator table: ||, &&, |, ^, &, ==/!=,
// relational, shift, additive, multiplicative.
var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

type exprParser struct {
	toks []token
	pos  int
}

func (p *exprParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *exprParser) parseExpr() (ast.Node, error) {
	return p.parseBinary(1)
}

func (p *exprParser) parseBinary(minPrec int) (ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokOp {
			return left, nil
		}
		prec, known := precedence[tok.text]
		if !known || prec < minPrec {
			return left, nil
		}
		p.pos++
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: tok.text, Left: left, Right: right}
	}
}

func (p *exprParser) parseUnary() (ast.Node, error) {
	tok, ok := p.peek()
	if ok && tok.kind == tokOp && (tok.text == "-" || tok.text == "+" || tok.text == "!") {
		p.pos++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: tok.text, X: x}, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (ast.Node, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator, "unexpected end of expression")
	}
	switch tok.kind {
	case tokInt:
		p.pos++
		return &ast.IntLit{Value: tok.val}, nil
	case tokIdent:
		p.pos++
		return &ast.LowerCaseID{Name: tok.text}, nil
	case tokLParen:
		p.pos++
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return nil, fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator, "missing closing parenthesis")
		}
		p.pos++
		return n, nil
	}
	return nil, fspgo.NewSemanticError(fspgo.ErrUnsupportedOperator, "unexpected token in expression")
}
