package rewrite

import (
	"testing"

	"github.com/rafaelsamenezes/goto-transcoder/internal/irep"
)

func TestRenamesSideEffect(t *testing.T) {
	n := Node(irep.From("side_effect"))
	if n.ID != "sideeffect" {
		t.Fatalf("expected sideeffect, got %q", n.ID)
	}
}

func TestPromotesOperandBearingNode(t *testing.T) {
	n := irep.From("+")
	n.Sub = []irep.Node{irep.From("a"), irep.From("b")}
	n = Node(n)
	if len(n.Sub) != 0 {
		t.Fatalf("expected positional children to be cleared, got %v", n.Sub)
	}
	operands, ok := n.Named("operands")
	if !ok || len(operands.Sub) != 2 {
		t.Fatalf("expected 2 operands, got %+v", operands)
	}
	if operands.Sub[0].ID != "a" || operands.Sub[1].ID != "b" {
		t.Fatalf("expected operand order preserved, got %+v", operands.Sub)
	}
}

func TestDoesNotPromoteNonOperandBearingNode(t *testing.T) {
	n := irep.From("symbol")
	n.Sub = []irep.Node{irep.From("a")}
	n = Node(n)
	if len(n.Sub) != 1 {
		t.Fatalf("expected symbol node's positional children untouched")
	}
}

func TestPromotesArrayExpressionButNotArrayType(t *testing.T) {
	expr := irep.From("array").SetNamed("type", irep.From("array"))
	expr.Sub = []irep.Node{irep.From("1"), irep.From("2")}
	expr = Node(expr)
	if len(expr.Sub) != 0 {
		t.Fatalf("expected array expression to promote")
	}

	typ := irep.From("array")
	typ.Sub = []irep.Node{irep.From("signedbv")}
	typ = Node(typ)
	if len(typ.Sub) != 1 {
		t.Fatalf("expected array type (no type-of-type child) to be left alone, got %+v", typ.Sub)
	}
}

func TestPromotesNonEmptyArguments(t *testing.T) {
	n := irep.From("arguments")
	n.Sub = []irep.Node{irep.From("a")}
	n = Node(n)
	if _, ok := n.Named("operands"); !ok {
		t.Fatalf("expected non-empty arguments to promote")
	}

	empty := Node(irep.From("arguments"))
	if _, ok := empty.Named("operands"); ok {
		t.Fatalf("expected empty arguments to be left alone")
	}
}

func TestConstantRenormalisesHexToBinary32(t *testing.T) {
	n := irep.From("constant").
		SetNamed("type", irep.From("signedbv")).
		SetNamed("value", irep.From("ff"))
	n = Node(n)
	value, _ := n.Named("value")
	const want = "00000000000000000000000011111111"
	if len(want) != 32 {
		t.Fatalf("test fixture itself is wrong length: %d", len(want))
	}
	if value.ID != want {
		t.Fatalf("unexpected value: %q", value.ID)
	}
}

func TestConstantSkipsPointerAndBoolTypes(t *testing.T) {
	n := irep.From("constant").
		SetNamed("type", irep.From("pointer")).
		SetNamed("value", irep.From("NULL"))
	n = Node(n)
	value, _ := n.Named("value")
	if value.ID != "NULL" {
		t.Fatalf("expected pointer-typed constant untouched, got %q", value.ID)
	}
}

func TestConstantSkipsAlreadyNormalisedValue(t *testing.T) {
	already := "00000000000000000000000000000001"
	n := irep.From("constant").
		SetNamed("type", irep.From("signedbv")).
		SetNamed("value", irep.From(already))
	n = Node(n)
	value, _ := n.Named("value")
	if value.ID != already {
		t.Fatalf("expected already-32-char value untouched, got %q", value.ID)
	}
}

func TestComponentsRenamedBeforeDescending(t *testing.T) {
	comp := irep.From("something")
	container := irep.Default()
	container.Sub = []irep.Node{comp}
	n := irep.From("struct").SetNamed("components", container)
	n = Node(n)
	out, _ := n.Named("components")
	if out.Sub[0].ID != "component" {
		t.Fatalf("expected component rename, got %q", out.Sub[0].ID)
	}
}

func TestRecursesIntoChildren(t *testing.T) {
	inner := irep.From("side_effect")
	outer := irep.Default()
	outer.Sub = []irep.Node{inner}
	outer = Node(outer)
	if outer.Sub[0].ID != "sideeffect" {
		t.Fatalf("expected recursive rename, got %q", outer.Sub[0].ID)
	}
}

func TestApplyingRewriterTwiceEqualsOnce(t *testing.T) {
	n := irep.From("+")
	n.Sub = []irep.Node{irep.From("a"), irep.From("b")}
	once := Node(n)
	twice := Node(once)
	if !once.Equal(twice) {
		t.Fatalf("expected rewrite to be idempotent, got once=%+v twice=%+v", once, twice)
	}
	operands, ok := twice.Named("operands")
	if !ok || len(operands.Sub) != 2 {
		t.Fatalf("expected operands preserved after second rewrite, got %+v", operands)
	}
}
