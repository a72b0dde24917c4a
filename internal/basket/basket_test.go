package basket

import (
	"math"
	"testing"
	"time"

	"github.com/niagalab/niaga/internal/database"
)

func basketTx(invoice, region, category string, qty float64) database.Transaction {
	return database.Transaction{
		Invoice:  invoice,
		Date:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Region:   region,
		Category: category,
		Quantity: qty,
	}
}

func TestClean(t *testing.T) {
	txs := []database.Transaction{
		basketTx("INV-1", "JAWA", " BREAD ", 2),
		basketTx("", "JAWA", "BUTTER", 1),     // blank invoice
		basketTx("INV-2", "JAWA", "MILK", -3), // return
		basketTx("INV-3", "JAWA", "EGGS", 0),  // zero quantity
	}
	cleaned := Clean(txs)
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 clean row, got %d", len(cleaned))
	}
	if cleaned[0].Category != "BREAD" {
		t.Errorf("category = %q, expected trimmed BREAD", cleaned[0].Category)
	}
}

func TestRegionRulesBreadButter(t *testing.T) {
	// 4 invoices: BREAD+BUTTER twice, BREAD alone, MILK alone.
	// BREAD->BUTTER: confidence 2/3, lift (2/3)/(2/4) = 1.3333.
	// BUTTER->BREAD: confidence 1, lift 1/(3/4) = 1.3333.
	txs := []database.Transaction{
		basketTx("INV-1", "JAWA", "BREAD", 1),
		basketTx("INV-1", "JAWA", "BUTTER", 1),
		basketTx("INV-2", "JAWA", "BREAD", 1),
		basketTx("INV-2", "JAWA", "BUTTER", 1),
		basketTx("INV-3", "JAWA", "BREAD", 1),
		basketTx("INV-4", "JAWA", "MILK", 1),
	}

	miner := NewMiner(Config{MinSupport: 0.3, MinLift: 1.0, MinItemCount: 1})
	rules := miner.Region(txs, "JAWA")
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d: %+v", len(rules), rules)
	}

	for _, r := range rules {
		if math.Abs(r.Lift-1.3333) > 1e-10 {
			t.Errorf("lift = %f, expected 1.3333", r.Lift)
		}
		if math.Abs(r.Support-0.5) > 1e-10 {
			t.Errorf("support = %f, expected 0.5", r.Support)
		}
		if r.Region != "JAWA" {
			t.Errorf("region = %q, expected JAWA", r.Region)
		}
	}

	// Equal lift, so confidence breaks the tie: BUTTER->BREAD first.
	if rules[0].Antecedents != "BUTTER" || rules[0].Consequents != "BREAD" {
		t.Errorf("first rule = %s -> %s, expected BUTTER -> BREAD", rules[0].Antecedents, rules[0].Consequents)
	}
	if rules[0].Confidence != 1.0 {
		t.Errorf("confidence = %f, expected 1.0", rules[0].Confidence)
	}
	if math.Abs(rules[1].Confidence-0.6667) > 1e-10 {
		t.Errorf("confidence = %f, expected 0.6667", rules[1].Confidence)
	}
}

func TestRegionDeduplicatesWithinInvoice(t *testing.T) {
	// A category listed twice on the same invoice counts once.
	txs := []database.Transaction{
		basketTx("INV-1", "JAWA", "BREAD", 1),
		basketTx("INV-1", "JAWA", "BREAD", 2),
		basketTx("INV-1", "JAWA", "BUTTER", 1),
		basketTx("INV-2", "JAWA", "BUTTER", 1),
	}

	miner := NewMiner(Config{MinSupport: 0.4, MinLift: 1.0, MinItemCount: 1})
	rules := miner.Region(txs, "JAWA")

	for _, r := range rules {
		// support(BREAD, BUTTER) must be 1/2, not inflated by the
		// duplicate BREAD line.
		if r.Support > 0.5+1e-10 {
			t.Errorf("support = %f, expected at most 0.5", r.Support)
		}
	}
}

func TestRegionDropsConfiguredItems(t *testing.T) {
	txs := []database.Transaction{
		basketTx("INV-1", "JAWA", "BREAD", 1),
		basketTx("INV-1", "JAWA", "POSTAGE", 1),
		basketTx("INV-2", "JAWA", "BREAD", 1),
		basketTx("INV-2", "JAWA", "POSTAGE", 1),
	}

	miner := NewMiner(Config{MinSupport: 0.1, MinLift: 1.0, MinItemCount: 1, DropItems: []string{"POSTAGE"}})
	rules := miner.Region(txs, "JAWA")
	for _, r := range rules {
		if r.Antecedents == "POSTAGE" || r.Consequents == "POSTAGE" {
			t.Errorf("POSTAGE must be dropped from baskets, got rule %+v", r)
		}
	}
}

func TestRegionPrunesRareItems(t *testing.T) {
	txs := []database.Transaction{
		basketTx("INV-1", "JAWA", "BREAD", 1),
		basketTx("INV-1", "JAWA", "CAVIAR", 1),
		basketTx("INV-2", "JAWA", "BREAD", 1),
		basketTx("INV-2", "JAWA", "BUTTER", 1),
		basketTx("INV-3", "JAWA", "BREAD", 1),
		basketTx("INV-3", "JAWA", "BUTTER", 1),
	}

	miner := NewMiner(Config{MinSupport: 0.1, MinLift: 0.5, MinItemCount: 2})
	rules := miner.Region(txs, "JAWA")
	if len(rules) == 0 {
		t.Fatal("expected rules for the frequent pair")
	}
	for _, r := range rules {
		if r.Antecedents == "CAVIAR" || r.Consequents == "CAVIAR" {
			t.Errorf("CAVIAR seen in only one transaction must be pruned, got %+v", r)
		}
	}
}

func TestAllSeparatesRegions(t *testing.T) {
	txs := []database.Transaction{
		basketTx("INV-1", "JAWA", "BREAD", 1),
		basketTx("INV-1", "JAWA", "BUTTER", 1),
		basketTx("INV-2", "JAWA", "BREAD", 1),
		basketTx("INV-2", "JAWA", "BUTTER", 1),
		basketTx("INV-3", "SUMATERA", "MILK", 1),
		basketTx("INV-3", "SUMATERA", "EGGS", 1),
	}

	miner := NewMiner(Config{MinSupport: 0.1, MinLift: 0.5, MinItemCount: 1})
	rules := miner.All(txs)

	for _, r := range rules {
		if r.Region == "JAWA" && (r.Antecedents == "MILK" || r.Consequents == "MILK") {
			t.Errorf("SUMATERA items leaked into JAWA rules: %+v", r)
		}
	}

	regions := make(map[string]bool)
	for _, r := range rules {
		regions[r.Region] = true
	}
	if !regions["JAWA"] || !regions["SUMATERA"] {
		t.Errorf("expected rules for both regions, got %v", regions)
	}
}
