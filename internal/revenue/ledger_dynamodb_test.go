package revenue

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo implements the ADD/GetItem/Query subset the ledger issues.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func keyOf(k map[string]types.AttributeValue) string {
	return k["account_id"].(*types.AttributeValueMemberS).Value + "|" + k["day"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := keyOf(in.Key)
	item, ok := f.items[k]
	if !ok {
		item = map[string]types.AttributeValue{"account_id": in.Key["account_id"], "day": in.Key["day"]}
		f.items[k] = item
	}
	var cur int64
	if n, ok := item["amount_minor"].(*types.AttributeValueMemberN); ok {
		cur, _ = strconv.ParseInt(n.Value, 10, 64)
	}
	delta, _ := strconv.ParseInt(in.ExpressionAttributeValues[":d"].(*types.AttributeValueMemberN).Value, 10, 64)
	item["amount_minor"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(cur+delta, 10)}
	item["updated_at"] = in.ExpressionAttributeValues[":u"]
	return &dynamodb.UpdateItemOutput{Attributes: item}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct := in.ExpressionAttributeValues[":a"].(*types.AttributeValueMemberS).Value
	from := in.ExpressionAttributeValues[":f"].(*types.AttributeValueMemberS).Value
	to := in.ExpressionAttributeValues[":t"].(*types.AttributeValueMemberS).Value
	var keys []string
	for k := range f.items {
		if strings.HasPrefix(k, acct+"|") {
			day := strings.TrimPrefix(k, acct+"|")
			if day >= from && day <= to {
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	out := &dynamodb.QueryOutput{}
	for _, k := range keys {
		out.Items = append(out.Items, f.items[k])
	}
	return out, nil
}

func TestDynamoLedger_AddReturnsNewTotal(t *testing.T) {
	l := NewDynamoLedger(newFakeDynamo(), "")
	ctx := context.Background()

	if total, err := l.Add(ctx, "a1", "2026-03-10", 120000); err != nil || total != 120000 {
		t.Fatalf("Add: %d %v", total, err)
	}
	if total, err := l.Add(ctx, "a1", "2026-03-10", -120000); err != nil || total != 0 {
		t.Fatalf("Add negative: %d %v", total, err)
	}
	_, _ = l.Add(ctx, "a1", "2026-03-12", 500)
	_, _ = l.Add(ctx, "a2", "2026-03-11", 999)

	if got, _ := l.Get(ctx, "a1", "2026-03-12"); got != 500 {
		t.Fatalf("Get: %d", got)
	}
	if got, _ := l.Get(ctx, "a1", "2026-01-01"); got != 0 {
		t.Fatalf("missing entry should read 0, got %d", got)
	}

	entries, err := l.Range(ctx, "a1", "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if len(entries) != 2 || entries[0].Day != "2026-03-10" || entries[1].AmountMinor != 500 {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestDynamoLedger_BacksReconciler(t *testing.T) {
	f := newFixture(t)
	f.rec.ledger = NewDynamoLedger(newFakeDynamo(), "ledger")
	a := f.appointment(t)
	f.transition(t, a.ID, "sold", 10000)
	res := f.transition(t, a.ID, "no_show", 0)
	if len(res.Moves) != 1 || res.Moves[0].TotalMinor != 0 || res.Moves[0].Day != "2026-03-10" {
		t.Fatalf("unexpected moves %+v", res.Moves)
	}
}
