package sle

import "github.com/LeJamon/goEscrowd/internal/types"

// Node types recorded in transaction metadata
const (
	NodeCreated  = "CreatedNode"
	NodeModified = "ModifiedNode"
	NodeDeleted  = "DeletedNode"
)

// AffectedNode describes one ledger entry touched by a transaction.
type AffectedNode struct {
	NodeType        string         `json:"node_type"`
	LedgerEntryType string         `json:"ledger_entry_type"`
	LedgerIndex     string         `json:"ledger_index"`
	PreviousTxnID   string         `json:"previous_txn_id,omitempty"`
	FinalFields     map[string]any `json:"final_fields,omitempty"`
	PreviousFields  map[string]any `json:"previous_fields,omitempty"`
	NewFields       map[string]any `json:"new_fields,omitempty"`
}

// NewAffectedNode builds the metadata node for a change from before to
// after. Either side may be nil for creations and deletions.
func NewAffectedNode(key types.Hash, before, after []byte) (AffectedNode, error) {
	node := AffectedNode{LedgerIndex: key.String()}

	switch {
	case before == nil && after != nil:
		t, fields, err := FieldsOf(after)
		if err != nil {
			return node, err
		}
		node.NodeType = NodeCreated
		node.LedgerEntryType = t.String()
		node.NewFields = fields
	case before != nil && after == nil:
		t, fields, err := FieldsOf(before)
		if err != nil {
			return node, err
		}
		node.NodeType = NodeDeleted
		node.LedgerEntryType = t.String()
		node.FinalFields = fields
		node.PreviousTxnID, _ = fields["PreviousTxnID"].(string)
	default:
		t, prev, err := FieldsOf(before)
		if err != nil {
			return node, err
		}
		_, final, err := FieldsOf(after)
		if err != nil {
			return node, err
		}
		node.NodeType = NodeModified
		node.LedgerEntryType = t.String()
		node.FinalFields = final
		node.PreviousTxnID, _ = prev["PreviousTxnID"].(string)
		node.PreviousFields = changedFields(prev, final)
	}
	return node, nil
}

// changedFields returns the previous values of fields that differ in final.
func changedFields(prev, final map[string]any) map[string]any {
	changed := make(map[string]any)
	for k, v := range prev {
		if k == "PreviousTxnID" {
			continue
		}
		if fv, ok := final[k]; !ok || fv != v {
			changed[k] = v
		}
	}
	if len(changed) == 0 {
		return nil
	}
	return changed
}
