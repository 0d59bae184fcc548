package model

import (
	"encoding/json"
	"testing"
)

func TestLogRecordFromJSONLine(t *testing.T) {
	line := `{"block_number":36000000,"tx_hash":"0xdef456","log_index":12,"address":"0x1111111111111111111111111111111111111111","topics":["0xaaa","0xbbb"],"data":"0xdeadbeef","timestamp":1700000000}`

	var record LogRecord
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if record.BlockNumber != 36000000 || record.LogIndex != 12 || record.Timestamp != 1700000000 {
		t.Fatalf("unexpected provenance: %+v", record)
	}
	if record.Topic0() != "0xaaa" {
		t.Fatalf("unexpected topic0: %s", record.Topic0())
	}

	if (LogRecord{}).Topic0() != "" {
		t.Fatalf("expected empty topic0 for anonymous log")
	}
}
