package replay

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"fundingScope/internal/model"
)

func buildLogRecord(log types.Log) model.LogRecord {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Hex())
	}

	return model.LogRecord{
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash.Hex(),
		TxHash:      log.TxHash.Hex(),
		TxIndex:     uint64(log.TxIndex),
		LogIndex:    uint64(log.Index),
		Address:     log.Address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(log.Data),
		Removed:     log.Removed,
	}
}

// LogRecordsFromReceipt converts a receipt's logs, keeping receipt order.
func LogRecordsFromReceipt(receipt *types.Receipt) []model.LogRecord {
	if receipt == nil {
		return nil
	}
	records := make([]model.LogRecord, 0, len(receipt.Logs))
	for _, log := range receipt.Logs {
		if log == nil {
			continue
		}
		records = append(records, buildLogRecord(*log))
	}
	return records
}

// txLogs is the slice of logs a single transaction emitted.
type txLogs struct {
	TxHash      string
	BlockNumber uint64
	Logs        []model.LogRecord
}

// groupByTransaction splits records into per-transaction groups. Records
// arrive in (block, log index) order from eth_getLogs, so groups keep both
// transaction order and log order.
func groupByTransaction(records []model.LogRecord) []txLogs {
	groups := make([]txLogs, 0)
	index := make(map[string]int)
	for _, record := range records {
		idx, ok := index[record.TxHash]
		if !ok {
			idx = len(groups)
			index[record.TxHash] = idx
			groups = append(groups, txLogs{TxHash: record.TxHash, BlockNumber: record.BlockNumber})
		}
		groups[idx].Logs = append(groups[idx].Logs, record)
	}
	return groups
}
