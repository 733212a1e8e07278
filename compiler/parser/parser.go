// Package parser is the thin front-end the compiler core treats as an
// external collaborator: its only contract with the rest of the system is
// the ast.Program shape it produces.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scenescript/scenectl/compiler/ast"
	"github.com/scenescript/scenectl/compiler/lexer"
)

// SyntaxError reports a malformed script, with the offending token's
// position for editor-friendly diagnostics.
type SyntaxError struct {
	Line, Column int
	Msg          string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

// Parser is a recursive-descent / Pratt hybrid: statements are parsed by
// straightforward recursive descent (each keyword has one production),
// expressions by precedence climbing.
type Parser struct {
	l         *lexer.Lexer
	cur, peek lexer.Token
}

// Parse lexes and parses a full script into a Program.
func Parse(src string) (*ast.Program, error) {
	p := &Parser{l: lexer.New(src)}
	p.next()
	p.next()
	return p.parseProgram()
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.Next()
}

func (p *Parser) errf(format string, args ...interface{}) error {
	return &SyntaxError{Line: p.cur.Line, Column: p.cur.Column, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(k lexer.Kind, what string) (lexer.Token, error) {
	if p.cur.Kind != k {
		return lexer.Token{}, p.errf("expected %s, got %q", what, p.cur.Literal)
	}
	tok := p.cur
	p.next()
	return tok, nil
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.cur.Kind != lexer.EOF {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	return prog, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.cur.Kind {
	case lexer.LET:
		return p.parseLet()
	case lexer.SET:
		return p.parseSet()
	case lexer.PRINT:
		return p.parsePrint()
	case lexer.WHEN:
		return p.parseWhen()
	case lexer.WAIT:
		return p.parseWait()
	case lexer.AT:
		return p.parseAt()
	case lexer.SCENE:
		return p.parseScene()
	case lexer.START:
		return p.parseStart()
	case lexer.STOP:
		return p.parseStop()
	case lexer.LBRACE:
		return p.parseBlock()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseLet() (ast.Stmt, error) {
	p.next() // consume 'let'
	name, err := p.expect(lexer.IDENT, "identifier")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ASSIGN, "'='"); err != nil {
		return nil, err
	}
	value, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.consumeSemi(); err != nil {
		return nil, err
	}
	return &ast.LetStmt{Name: name.Literal, Value: value}, nil
}

func (p *Parser) parseSet() (ast.Stmt, error) {
	p.next() // consume 'set'
	pathTok, err := p.expect(lexer.PATH, "<path>")
	if err != nil {
		return nil, err
	}
	value, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.consumeSemi(); err != nil {
		return nil, err
	}
	return &ast.SetStmt{Path: &ast.PathLiteral{Path: pathTok.Literal}, Value: value}, nil
}

func (p *Parser) parsePrint() (ast.Stmt, error) {
	p.next() // consume 'print'
	value, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.consumeSemi(); err != nil {
		return nil, err
	}
	return &ast.PrintStmt{Value: value}, nil
}

func (p *Parser) parseWhen() (ast.Stmt, error) {
	p.next() // consume 'when'
	cond, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.WhenStmt{Cond: cond, Body: body}, nil
}

func (p *Parser) parseWait() (ast.Stmt, error) {
	p.next() // consume 'wait'
	dur, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.WaitStmt{Duration: dur, Body: body}, nil
}

func (p *Parser) parseAt() (ast.Stmt, error) {
	p.next() // consume 'at'
	at, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.AtStmt{Time: at, Body: body}, nil
}

func (p *Parser) parseScene() (ast.Stmt, error) {
	p.next() // consume 'scene'
	name, err := p.expect(lexer.IDENT, "identifier")
	if err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.SceneStmt{Name: name.Literal, Body: body}, nil
}

func (p *Parser) parseStart() (ast.Stmt, error) {
	p.next() // consume 'start'
	name, err := p.expect(lexer.IDENT, "identifier")
	if err != nil {
		return nil, err
	}
	if err := p.consumeSemi(); err != nil {
		return nil, err
	}
	return &ast.StartStmt{Name: name.Literal}, nil
}

func (p *Parser) parseStop() (ast.Stmt, error) {
	p.next() // consume 'stop'
	name, err := p.expect(lexer.IDENT, "identifier")
	if err != nil {
		return nil, err
	}
	if err := p.consumeSemi(); err != nil {
		return nil, err
	}
	return &ast.StopStmt{Name: name.Literal}, nil
}

func (p *Parser) parseBlock() (ast.Stmt, error) {
	p.next() // consume '{'
	block := &ast.BlockStmt{}
	for p.cur.Kind != lexer.RBRACE {
		if p.cur.Kind == lexer.EOF {
			return nil, p.errf("unterminated block")
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	p.next() // consume '}'
	if err := p.consumeSemi(); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) parseExprStmt() (ast.Stmt, error) {
	value, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.consumeSemi(); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Value: value}, nil
}

// consumeSemi requires and consumes the ';' every statement ends with.
func (p *Parser) consumeSemi() error {
	_, err := p.expect(lexer.SEMI, "';'")
	return err
}

// Operator precedence, lowest to highest.
const (
	lowest int = iota
	asIn       // `init as x in cont`
	equality   // is
	sum        // + -
	product    // * /
	indexPrec  // .prop
)

func precedenceOf(k lexer.Kind) int {
	switch k {
	case lexer.AS:
		return asIn
	case lexer.IS:
		return equality
	case lexer.PLUS, lexer.MINUS:
		return sum
	case lexer.STAR, lexer.SLASH:
		return product
	case lexer.DOT:
		return indexPrec
	default:
		return lowest
	}
}

func (p *Parser) parseExpr(precedence int) (ast.Expr, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind != lexer.SEMI && precedence < precedenceOf(p.cur.Kind) {
		switch p.cur.Kind {
		case lexer.AS:
			left, err = p.parseAs(left)
		case lexer.IS, lexer.PLUS, lexer.MINUS, lexer.STAR, lexer.SLASH:
			left, err = p.parseBinary(left)
		case lexer.DOT:
			left, err = p.parseIndex(left)
		default:
			return left, nil
		}
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parsePrefix() (ast.Expr, error) {
	switch p.cur.Kind {
	case lexer.STRING:
		v := p.cur.Literal
		p.next()
		return &ast.StringLiteral{Value: v}, nil
	case lexer.INTEGER:
		n, err := strconv.ParseInt(p.cur.Literal, 10, 64)
		if err != nil {
			return nil, p.errf("invalid integer literal %q", p.cur.Literal)
		}
		p.next()
		return &ast.IntegerLiteral{Value: n}, nil
	case lexer.FLOAT:
		f, err := strconv.ParseFloat(p.cur.Literal, 64)
		if err != nil {
			return nil, p.errf("invalid float literal %q", p.cur.Literal)
		}
		p.next()
		return &ast.FloatLiteral{Value: f}, nil
	case lexer.TRUE:
		p.next()
		return &ast.BoolLiteral{Value: true}, nil
	case lexer.FALSE:
		p.next()
		return &ast.BoolLiteral{Value: false}, nil
	case lexer.DURATION:
		return p.parseDuration()
	case lexer.TIME:
		return p.parseTime()
	case lexer.PATH:
		path := p.cur.Literal
		p.next()
		return &ast.PathLiteral{Path: path}, nil
	case lexer.IDENT:
		name := p.cur.Literal
		p.next()
		return &ast.Ident{Name: name}, nil
	case lexer.LBRACE:
		return p.parseObject()
	case lexer.LPAREN:
		p.next()
		expr, err := p.parseExpr(lowest)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		return nil, p.errf("unexpected token %q", p.cur.Literal)
	}
}

func (p *Parser) parseDuration() (ast.Expr, error) {
	lit := p.cur.Literal // e.g. "90m"
	unit := lit[len(lit)-1]
	n, err := strconv.ParseInt(lit[:len(lit)-1], 10, 64)
	if err != nil {
		return nil, p.errf("invalid duration literal %q", lit)
	}
	var ns int64
	switch unit {
	case 'h':
		ns = n * int64(3600e9)
	case 'm':
		ns = n * int64(60e9)
	case 's':
		ns = n * int64(1e9)
	default:
		return nil, p.errf("invalid duration unit in %q", lit)
	}
	p.next()
	return &ast.DurationLiteral{Nanoseconds: ns}, nil
}

func (p *Parser) parseTime() (ast.Expr, error) {
	lit := p.cur.Literal
	p.next()
	switch lit {
	case "#sunrise":
		return &ast.TimeLiteral{Kind: ast.TimeSunrise}, nil
	case "#sunset":
		return &ast.TimeLiteral{Kind: ast.TimeSunset}, nil
	}
	pm := strings.HasSuffix(lit, "PM")
	am := strings.HasSuffix(lit, "AM")
	body := lit
	if pm || am {
		body = lit[:len(lit)-2]
	}
	parts := strings.SplitN(body, ":", 2)
	if len(parts) != 2 {
		return nil, p.errf("invalid time literal %q", lit)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, p.errf("invalid time literal %q", lit)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, p.errf("invalid time literal %q", lit)
	}
	if pm && hour != 12 {
		hour += 12
	}
	if am && hour == 12 {
		hour = 0
	}
	return &ast.TimeLiteral{Kind: ast.TimeHourMinute, Hour: hour, Minute: minute}, nil
}

func (p *Parser) parseObject() (ast.Expr, error) {
	p.next() // consume '{'
	obj := &ast.ObjectLiteral{}
	for p.cur.Kind != lexer.RBRACE {
		key, err := p.expect(lexer.IDENT, "object key")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COLON, "':'"); err != nil {
			return nil, err
		}
		value, err := p.parseExpr(lowest)
		if err != nil {
			return nil, err
		}
		obj.Fields = append(obj.Fields, ast.ObjectField{Key: key.Literal, Value: value})
		if p.cur.Kind == lexer.COMMA {
			p.next()
		}
	}
	p.next() // consume '}'
	return obj, nil
}

func (p *Parser) parseAs(init ast.Expr) (ast.Expr, error) {
	p.next() // consume 'as'
	name, err := p.expect(lexer.IDENT, "identifier")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.IN, "'in'"); err != nil {
		return nil, err
	}
	cont, err := p.parseExpr(asIn - 1)
	if err != nil {
		return nil, err
	}
	return &ast.AsExpr{Init: init, Name: name.Literal, Cont: cont}, nil
}

func (p *Parser) parseBinary(left ast.Expr) (ast.Expr, error) {
	opTok := p.cur
	prec := precedenceOf(opTok.Kind)
	p.next()
	right, err := p.parseExpr(prec)
	if err != nil {
		return nil, err
	}
	op := opTok.Literal
	if opTok.Kind == lexer.IS {
		op = "is"
	}
	return &ast.BinaryExpr{Left: left, Op: op, Right: right}, nil
}

func (p *Parser) parseIndex(obj ast.Expr) (ast.Expr, error) {
	p.next() // consume '.'
	key, err := p.expect(lexer.IDENT, "property name")
	if err != nil {
		return nil, err
	}
	return &ast.IndexExpr{Obj: obj, Key: key.Literal}, nil
}
