package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/chirpwall/chirpwall/pkg/wire"
	"github.com/chirpwall/chirpwall/server/internal/store"
)

const (
	listQuery   = `query GetMessages { messages { id content author createdAt __typename } }`
	createQuery = `mutation CreateMessage($content: String!, $author: String!) {
  createMessage(content: $content, author: $author) { id content author createdAt }
}`
)

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		req     wire.Request
		want    Kind
		content string
		author  string
	}{
		{"named list query", wire.Request{Query: listQuery}, KindListMessages, "", ""},
		{"shorthand list query", wire.Request{Query: `{ messages { id } }`}, KindListMessages, "", ""},
		{"anonymous list query", wire.Request{Query: `query { messages { id } }`}, KindListMessages, "", ""},
		{"aliased list", wire.Request{Query: `query { all: messages { id } }`}, KindListMessages, "", ""},
		{
			"create with variables",
			wire.Request{Query: createQuery, Variables: map[string]any{"content": "hi", "author": "alice"}},
			KindCreateMessage, "hi", "alice",
		},
		{
			"create with inline strings",
			wire.Request{Query: `mutation { createMessage(content: "a \"quoted\" line", author: "bob") { id } }`},
			KindCreateMessage, `a "quoted" line`, "bob",
		},
		{
			"create with missing variables",
			wire.Request{Query: createQuery},
			KindCreateMessage, "", "",
		},
		{
			"create with non-string variable",
			wire.Request{Query: createQuery, Variables: map[string]any{"content": 42.0, "author": "alice"}},
			KindCreateMessage, "", "alice",
		},
		{
			// A mutation whose selection mentions "messages" is still a create.
			"create selecting messages",
			wire.Request{
				Query:     `mutation M($c: String!) { createMessage(content: $c, author: "x") { id messages } }`,
				Variables: map[string]any{"c": "hello"},
			},
			KindCreateMessage, "hello", "x",
		},
		{
			"comments and directives",
			wire.Request{Query: "# list\nquery Q @cached(ttl: 5) {\n  messages { id }\n}"},
			KindListMessages, "", "",
		},
		{
			"operation name selects definition",
			wire.Request{
				Query:         listQuery + "\n" + `mutation Add { createMessage(content: "c", author: "a") { id } }`,
				OperationName: "Add",
			},
			KindCreateMessage, "c", "a",
		},
		{"unknown operation name", wire.Request{Query: listQuery, OperationName: "Nope"}, KindUnknown, "", ""},
		{"messages as mutation", wire.Request{Query: `mutation { messages { id } }`}, KindUnknown, "", ""},
		{"createMessage as query", wire.Request{Query: `query { createMessage(content: "a", author: "b") { id } }`}, KindUnknown, "", ""},
		{"subscription", wire.Request{Query: `subscription { messageAdded { id } }`}, KindUnknown, "", ""},
		{"other field", wire.Request{Query: `query { users { id } }`}, KindUnknown, "", ""},
		{"fragment only", wire.Request{Query: `fragment F on Message { id }`}, KindUnknown, "", ""},
		{"garbage", wire.Request{Query: `}}}((`}, KindUnknown, "", ""},
		{"empty", wire.Request{}, KindUnknown, "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			op := Parse(tc.req)
			if op.Kind != tc.want {
				t.Fatalf("Kind: got %v, want %v", op.Kind, tc.want)
			}
			if op.Content != tc.content {
				t.Errorf("Content: got %q, want %q", op.Content, tc.content)
			}
			if op.Author != tc.author {
				t.Errorf("Author: got %q, want %q", op.Author, tc.author)
			}
		})
	}
}

func TestParse_FragmentBeforeOperation(t *testing.T) {
	q := `fragment F on Message { id content }
query Q { messages { ...F } }`
	if op := Parse(wire.Request{Query: q}); op.Kind != KindListMessages || op.Name != "Q" {
		t.Errorf("got %+v, want list operation named Q", op)
	}
}

func TestParse_StringArguments(t *testing.T) {
	create := func(args string) wire.Request {
		return wire.Request{Query: "mutation { createMessage(" + args + ") { id } }"}
	}
	cases := []struct {
		name    string
		req     wire.Request
		content string
		author  string
	}{
		{"escapes", create(`content: "tab\there caf\u00e9", author: "bob"`), "tab\there café", "bob"},
		{"surrogate pair", create(`content: "hi \ud83d\ude00", author: "bob"`), "hi \U0001F600", "bob"},
		{"block string", create(`content: """block "quoted" text""", author: "bob"`), `block "quoted" text`, "bob"},
		{"escaped triple quote", create(`content: """say \""" ok""", author: "bob"`), `say """ ok`, "bob"},
		{"block string keeps backslashes", create(`content: """raw \ud83d\ude00""", author: "bob"`), `raw \ud83d\ude00`, "bob"},
		{
			"comment with stray quote",
			wire.Request{Query: "# say \"hi\nmutation { createMessage(content: \"\\ud83d\\ude00\", author: \"x\") { id } }"},
			"\U0001F600", "x",
		},
		{"non-string literal", create(`content: 42, author: null`), "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			op := Parse(tc.req)
			if op.Kind != KindCreateMessage {
				t.Fatalf("Kind: got %v, want createMessage", op.Kind)
			}
			if op.Content != tc.content || op.Author != tc.author {
				t.Errorf("got content=%q author=%q, want content=%q author=%q", op.Content, op.Author, tc.content, tc.author)
			}
		})
	}
}

func TestParse_VariableDefaults(t *testing.T) {
	q := `mutation M($c: String = "dflt", $a: String = "anon") { createMessage(content: $c, author: $a) { id } }`

	op := Parse(wire.Request{Query: q})
	if op.Content != "dflt" || op.Author != "anon" {
		t.Errorf("defaults: got content=%q author=%q, want dflt/anon", op.Content, op.Author)
	}

	op = Parse(wire.Request{Query: q, Variables: map[string]any{"c": "given", "a": nil}})
	if op.Content != "given" {
		t.Errorf("content: got %q, want given", op.Content)
	}
	if op.Author != "" {
		t.Errorf("explicit null author: got %q, want empty", op.Author)
	}
}

func TestParse_UnterminatedString(t *testing.T) {
	op := Parse(wire.Request{Query: "mutation { createMessage(content: \"oops\n, author: \"bob\") { id } }"})
	if op.Kind != KindUnknown {
		t.Errorf("Kind: got %v, want unknown", op.Kind)
	}
}

// --- Execute ---

type recorder struct {
	mu   sync.Mutex
	msgs []wire.Message
}

func (r *recorder) OnMessageCreated(m wire.Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
}

func (r *recorder) got() []wire.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]wire.Message(nil), r.msgs...)
}

type opCounter map[string]int

func (c opCounter) ObserveOperation(operation, outcome string) { c[operation+"/"+outcome]++ }

func encode(t *testing.T, resp wire.Response) string {
	t.Helper()
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestExecute_EmptyList(t *testing.T) {
	d := New(store.New())
	got := encode(t, d.Execute(context.Background(), wire.Request{Query: listQuery}))
	if want := `{"data":{"messages":[]}}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestExecute_CreatePublishesAndLists(t *testing.T) {
	st := store.New()
	rec := &recorder{}
	obs := opCounter{}
	d := New(st, rec)
	d.SetObserver(obs)

	resp := d.Execute(context.Background(), wire.Request{
		Query:     createQuery,
		Variables: map[string]any{"content": "hi", "author": "alice"},
	})
	if len(resp.Errors) != 0 || resp.Data == nil || resp.Data.CreateMessage == nil {
		t.Fatalf("create response: %+v", resp)
	}
	m := *resp.Data.CreateMessage
	if m.ID != "1" || m.Content != "hi" || m.Author != "alice" {
		t.Errorf("created: got %+v", m)
	}

	if pubs := rec.got(); len(pubs) != 1 || pubs[0] != m {
		t.Errorf("published: got %+v, want [%+v]", pubs, m)
	}

	list := d.Execute(context.Background(), wire.Request{Query: listQuery})
	if list.Data == nil || len(list.Data.Messages) != 1 || list.Data.Messages[0] != m {
		t.Errorf("list after create: %+v", list)
	}

	if obs["createMessage/ok"] != 1 || obs["messages/ok"] != 1 {
		t.Errorf("observer: got %v", obs)
	}
}

func TestExecute_ValidationError(t *testing.T) {
	st := store.New()
	rec := &recorder{}
	d := New(st, rec)

	resp := d.Execute(context.Background(), wire.Request{
		Query:     createQuery,
		Variables: map[string]any{"content": "", "author": "alice"},
	})
	if got, want := encode(t, resp), `{"errors":[{"message":"Content and author are required"}]}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if st.Len() != 0 {
		t.Errorf("store len: got %d, want 0", st.Len())
	}
	if len(rec.got()) != 0 {
		t.Error("publisher called for rejected create")
	}
}

func TestExecute_UnknownOperation(t *testing.T) {
	d := New(store.New())
	resp := d.Execute(context.Background(), wire.Request{Query: `query { users { id } }`})
	if got, want := encode(t, resp), `{"errors":[{"message":"Unknown operation"}]}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCreate_CanceledContext(t *testing.T) {
	st := store.New()
	d := New(st)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Create(ctx, "a", "b"); !errors.Is(err, context.Canceled) {
		t.Errorf("err: got %v, want context.Canceled", err)
	}
	if st.Len() != 0 {
		t.Errorf("store len: got %d, want 0", st.Len())
	}
}

func TestCreate_PublishesInIDOrder(t *testing.T) {
	const n = 100
	rec := &recorder{}
	d := New(store.New(), rec)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Create(context.Background(), "c", "a"); err != nil {
				t.Errorf("Create: %v", err)
			}
		}()
	}
	wg.Wait()

	pubs := rec.got()
	if len(pubs) != n {
		t.Fatalf("published: got %d, want %d", len(pubs), n)
	}
	for i, m := range pubs {
		if m.Seq() != uint64(i+1) {
			t.Fatalf("publish %d: got id %s, want %d", i, m.ID, i+1)
		}
	}
}
