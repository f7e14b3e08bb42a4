package federation

import (
	"fmt"
	"strings"

	"github.com/hyprcat/hyprcat/internal/model"
)

// Parser is a hand-written recursive-descent parser over the HyprQL
// subset: SELECT ... FROM ... [JOIN ... ON ...]* [WHERE ...]
// [ORDER BY ...] [LIMIT n] [UNION ALL SELECT ...]*. It never falls back
// to regular expressions.
type Parser struct {
	toks []token
	pos  int
}

// Parse tokenizes and parses a query string into a model.FederatedQuery.
func Parse(query string) (*model.FederatedQuery, error) {
	lx := newLexer(query)
	var toks []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			break
		}
		toks = append(toks, tok)
	}

	p := &Parser{toks: toks}
	q, err := p.parseSelect()
	if err != nil {
		return nil, fmt.Errorf("federation: parse %q: %w", query, err)
	}
	q.Text = query
	return q, nil
}

func (p *Parser) peek() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekKeyword(kw string) bool {
	t := p.peek()
	return t.kind == tokWord && strings.EqualFold(t.text, kw)
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.peekKeyword(kw) {
		return fmt.Errorf("expected %q, got %q", kw, p.peek().text)
	}
	p.pos++
	return nil
}

func (p *Parser) expectSymbol(sym string) error {
	t := p.peek()
	if t.kind != tokSymbol || t.text != sym {
		return fmt.Errorf("expected %q, got %q", sym, t.text)
	}
	p.pos++
	return nil
}

func (p *Parser) parseSelect() (*model.FederatedQuery, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}

	q := &model.FederatedQuery{}

	fields, err := p.parseFieldList()
	if err != nil {
		return nil, err
	}
	q.Select = fields

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	sources, err := p.parseIdentList()
	if err != nil {
		return nil, err
	}
	q.From = sources

	for p.peekKeyword("JOIN") {
		p.pos++
		source := p.peek()
		if source.kind != tokWord {
			return nil, fmt.Errorf("expected source identifier after JOIN, got %q", source.text)
		}
		p.pos++
		if err := p.expectKeyword("ON"); err != nil {
			return nil, err
		}
		left := p.peek()
		p.pos++
		if err := p.expectSymbol("="); err != nil {
			return nil, err
		}
		right := p.peek()
		p.pos++
		q.Joins = append(q.Joins, model.JoinClause{Source: source.text, LeftKey: left.text, RightKey: right.text})
	}

	if p.peekKeyword("WHERE") {
		p.pos++
		preds, err := p.parseWhere()
		if err != nil {
			return nil, err
		}
		q.Where = preds
	}

	if p.peekKeyword("ORDER") {
		p.pos++
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		terms, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		q.OrderBy = terms
	}

	if p.peekKeyword("LIMIT") {
		p.pos++
		t := p.peek()
		if t.kind != tokNumber {
			return nil, fmt.Errorf("expected number after LIMIT, got %q", t.text)
		}
		p.pos++
		n, err := parseNumberLiteral(t.text)
		if err != nil {
			return nil, err
		}
		switch v := n.(type) {
		case int64:
			q.Limit = int(v)
		case float64:
			q.Limit = int(v)
		}
	}

	if p.peekKeyword("UNION") {
		p.pos++
		if p.peekKeyword("ALL") {
			p.pos++
		}
		rest, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		q.UnionAll = append(q.UnionAll, rest)
	}

	return q, nil
}

func (p *Parser) parseFieldList() ([]string, error) {
	var fields []string
	for {
		t := p.peek()
		if t.kind == tokSymbol && t.text == "*" {
			p.pos++
			fields = append(fields, "*")
		} else if t.kind == tokWord {
			p.pos++
			fields = append(fields, t.text)
		} else {
			return nil, fmt.Errorf("expected field name, got %q", t.text)
		}

		if p.peek().kind == tokSymbol && p.peek().text == "," {
			p.pos++
			continue
		}
		break
	}
	return fields, nil
}

func (p *Parser) parseIdentList() ([]string, error) {
	var idents []string
	for {
		t := p.peek()
		if t.kind != tokWord {
			return nil, fmt.Errorf("expected identifier, got %q", t.text)
		}
		p.pos++
		idents = append(idents, t.text)

		if p.peek().kind == tokSymbol && p.peek().text == "," {
			p.pos++
			continue
		}
		break
	}
	return idents, nil
}

func (p *Parser) parseWhere() ([]model.Predicate, error) {
	var preds []model.Predicate
	for {
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)

		if p.peekKeyword("AND") {
			p.pos++
			continue
		}
		break
	}
	return preds, nil
}

func (p *Parser) parsePredicate() (model.Predicate, error) {
	field := p.peek()
	if field.kind != tokWord {
		return model.Predicate{}, fmt.Errorf("expected field in predicate, got %q", field.text)
	}
	p.pos++

	op := p.peek()
	var opStr string
	switch {
	case op.kind == tokSymbol:
		opStr = op.text
		p.pos++
	case op.kind == tokWord && strings.EqualFold(op.text, "LIKE"):
		opStr = "LIKE"
		p.pos++
	default:
		return model.Predicate{}, fmt.Errorf("expected comparison operator, got %q", op.text)
	}

	valTok := p.peek()
	var val interface{}
	switch valTok.kind {
	case tokString:
		val = valTok.text
	case tokNumber:
		n, err := parseNumberLiteral(valTok.text)
		if err != nil {
			return model.Predicate{}, err
		}
		val = n
	case tokWord:
		val = valTok.text
	default:
		return model.Predicate{}, fmt.Errorf("expected value, got %q", valTok.text)
	}
	p.pos++

	return model.Predicate{Field: field.text, Op: opStr, Value: val}, nil
}

func (p *Parser) parseOrderBy() ([]model.OrderTerm, error) {
	var terms []model.OrderTerm
	for {
		t := p.peek()
		if t.kind != tokWord {
			return nil, fmt.Errorf("expected field in ORDER BY, got %q", t.text)
		}
		p.pos++
		term := model.OrderTerm{Field: t.text}

		if p.peekKeyword("DESC") {
			p.pos++
			term.Desc = true
		} else if p.peekKeyword("ASC") {
			p.pos++
		}
		terms = append(terms, term)

		if p.peek().kind == tokSymbol && p.peek().text == "," {
			p.pos++
			continue
		}
		break
	}
	return terms, nil
}
