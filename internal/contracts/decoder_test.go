package contracts

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"jackpotIndexer/internal/model"
)

func TestFactoryDecoderEvents(t *testing.T) {
	factoryABI, err := FactoryABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewFactoryDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	factory := common.HexToAddress("0x1111111111111111111111111111111111111111")
	pool := common.HexToAddress("0x2222222222222222222222222222222222222222")

	createdData, err := factoryABI.Events[EventPoolCreated].Inputs.NonIndexed().Pack(pool)
	if err != nil {
		t.Fatalf("pack pool created: %v", err)
	}
	createdLog := buildLog(factory, factoryABI.Events[EventPoolCreated].ID, createdData, topicFromUint(7))

	event, err := decoder.Decode(createdLog, testMeta(createdLog))
	if err != nil {
		t.Fatalf("decode pool created: %v", err)
	}
	created, ok := event.(model.PoolCreated)
	if !ok {
		t.Fatalf("decoded type mismatch: %T", event)
	}
	if created.TemplateID.Int64() != 7 || created.Pool != pool {
		t.Fatalf("pool created mismatch: %+v", created)
	}
	if created.BlockNumber != createdLog.BlockNumber || created.TxHash != createdLog.TxHash {
		t.Fatalf("meta mismatch: %+v", created.LogMeta)
	}

	registeredData, err := factoryABI.Events[EventTemplateRegistered].Inputs.NonIndexed().Pack(pool)
	if err != nil {
		t.Fatalf("pack template registered: %v", err)
	}
	registeredLog := buildLog(factory, factoryABI.Events[EventTemplateRegistered].ID, registeredData, topicFromUint(3))
	event, err = decoder.Decode(registeredLog, testMeta(registeredLog))
	if err != nil {
		t.Fatalf("decode template registered: %v", err)
	}
	if registered, ok := event.(model.TemplateRegistered); !ok || registered.TemplateID.Int64() != 3 {
		t.Fatalf("template registered mismatch: %#v", event)
	}

	statusData, err := factoryABI.Events[EventTemplateStatusUpdated].Inputs.NonIndexed().Pack(false)
	if err != nil {
		t.Fatalf("pack status: %v", err)
	}
	statusLog := buildLog(factory, factoryABI.Events[EventTemplateStatusUpdated].ID, statusData, topicFromUint(3))
	event, err = decoder.Decode(statusLog, testMeta(statusLog))
	if err != nil {
		t.Fatalf("decode status: %v", err)
	}
	status, ok := event.(model.TemplateStatusUpdated)
	if !ok || status.Active || status.TemplateID.Int64() != 3 {
		t.Fatalf("status mismatch: %#v", event)
	}
}

func TestPoolDecoderEvents(t *testing.T) {
	poolABI, err := PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewPoolDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	account := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	ticketData, err := poolABI.Events[EventTicketPurchased].Inputs.NonIndexed().Pack(big.NewInt(250), big.NewInt(2))
	if err != nil {
		t.Fatalf("pack ticket: %v", err)
	}
	ticketLog := buildLog(pool, poolABI.Events[EventTicketPurchased].ID, ticketData, topicFromAddress(account))
	event, err := decoder.Decode(ticketLog, testMeta(ticketLog))
	if err != nil {
		t.Fatalf("decode ticket: %v", err)
	}
	ticket, ok := event.(model.TicketPurchased)
	if !ok {
		t.Fatalf("ticket type mismatch: %T", event)
	}
	if ticket.Account != account || ticket.Amount.Int64() != 250 || ticket.CumulativeEntries.Int64() != 2 {
		t.Fatalf("ticket mismatch: %+v", ticket)
	}

	closedData, err := poolABI.Events[EventPoolClosed].Inputs.NonIndexed().Pack(big.NewInt(700), big.NewInt(200), big.NewInt(100))
	if err != nil {
		t.Fatalf("pack closed: %v", err)
	}
	closedLog := buildLog(pool, poolABI.Events[EventPoolClosed].ID, closedData)
	event, err = decoder.Decode(closedLog, testMeta(closedLog))
	if err != nil {
		t.Fatalf("decode closed: %v", err)
	}
	closed, ok := event.(model.PoolClosed)
	if !ok {
		t.Fatalf("closed type mismatch: %T", event)
	}
	if closed.JackpotAmount.Int64() != 700 || closed.ConsolationAmount.Int64() != 200 || closed.TreasuryAmount.Int64() != 100 {
		t.Fatalf("closed mismatch: %+v", closed)
	}

	claimData, err := poolABI.Events[EventPrizeClaimed].Inputs.NonIndexed().Pack(uint8(1), big.NewInt(35))
	if err != nil {
		t.Fatalf("pack claim: %v", err)
	}
	claimLog := buildLog(pool, poolABI.Events[EventPrizeClaimed].ID, claimData, topicFromAddress(account), topicFromUint(42))
	event, err = decoder.Decode(claimLog, testMeta(claimLog))
	if err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	claim, ok := event.(model.PrizeClaimed)
	if !ok {
		t.Fatalf("claim type mismatch: %T", event)
	}
	if claim.Winner != account || claim.TicketNumber.Int64() != 42 || claim.RewardType != 1 || claim.Amount.Int64() != 35 {
		t.Fatalf("claim mismatch: %+v", claim)
	}
}

func TestDecoderSkipsUnknownTopics(t *testing.T) {
	factoryDecoder, err := NewFactoryDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	poolDecoder, err := NewPoolDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	unknown := buildLog(common.HexToAddress("0x01"), common.HexToHash("0xdeadbeef"), nil)
	if event, err := factoryDecoder.Decode(unknown, testMeta(unknown)); event != nil || err != nil {
		t.Fatalf("expected unrecognized factory log, got %v %v", event, err)
	}
	if event, err := poolDecoder.Decode(unknown, testMeta(unknown)); event != nil || err != nil {
		t.Fatalf("expected unrecognized pool log, got %v %v", event, err)
	}

	empty := types.Log{}
	if event, err := poolDecoder.Decode(empty, model.LogMeta{}); event != nil || err != nil {
		t.Fatalf("expected unrecognized empty log, got %v %v", event, err)
	}

	// A factory topic is not a pool topic.
	factoryABI, _ := FactoryABI()
	if poolDecoder.CanDecode(factoryABI.Events[EventPoolCreated].ID) {
		t.Fatalf("pool decoder should not accept factory topics")
	}
}

func TestDecoderMalformedPayload(t *testing.T) {
	poolABI, err := PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewPoolDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	// Missing the indexed account topic and carrying truncated data.
	log := buildLog(common.HexToAddress("0x02"), poolABI.Events[EventTicketPurchased].ID, []byte{0x01})
	_, err = decoder.Decode(log, testMeta(log))
	if err == nil {
		t.Fatalf("expected decode error")
	}
	var decodeErr *model.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %T", err)
	}
	if decodeErr.Event != EventTicketPurchased || decodeErr.LogIndex != log.Index {
		t.Fatalf("decode error mismatch: %+v", decodeErr)
	}
}

func TestDecoderTopics(t *testing.T) {
	decoder, err := NewPoolDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	topics := decoder.Topics()
	if len(topics) != 3 {
		t.Fatalf("expected 3 topics, got %d", len(topics))
	}
	for _, topic := range topics {
		if !decoder.CanDecode(topic) {
			t.Fatalf("topic %s not decodable", topic.Hex())
		}
	}
	topics[0] = common.Hash{}
	if decoder.Topics()[0] == (common.Hash{}) {
		t.Fatalf("Topics should return a copy")
	}
}

func buildLog(address common.Address, topic0 common.Hash, data []byte, indexed ...common.Hash) types.Log {
	topics := make([]common.Hash, 0, len(indexed)+1)
	topics = append(topics, topic0)
	topics = append(topics, indexed...)

	return types.Log{
		Address:     address,
		Topics:      topics,
		Data:        data,
		BlockNumber: 12345,
		TxHash:      common.HexToHash("0xdef"),
		Index:       1,
	}
}

func testMeta(log types.Log) model.LogMeta {
	return model.LogMeta{
		Address:     log.Address,
		BlockNumber: log.BlockNumber,
		BlockTime:   time.Unix(1700000000, 0).UTC(),
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func topicFromUint(value uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(value))
}
