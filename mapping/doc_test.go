// go test github.com/homemade/remap/mapping -run Documentation -v
package mapping

import (
	"strings"
	"testing"
)

const docTestDocument = `{"code":"order","mappings":[
	{"sourcePath":"customer.name","targetPath":"buyer.name","processors":["trim","uppercase"]},
	{"sourcePath":"items[*].sku","targetPath":"skus","processors":["prefix:#"],"aggregationStrategies":["join:|"]},
	{"sourcePath":"items[*].price","targetPath":"amount","processors":["roundTwoDecimal"],"aggregationStrategies":["sum"]},
	{"sourcePath":"x","targetPath":"lines[*].x","processors":["sparkle"],"aggregationStrategies":["median"]}
]}`

func docTestRuleSet(t *testing.T) *RuleSet {
	cfg, err := ParseRuleSetJSON([]byte(docTestDocument))
	if err != nil {
		t.Fatal(err)
	}
	set, err := cfg.Compile()
	if err != nil {
		t.Fatal(err)
	}
	return set
}

func TestGenerateRuleDocumentation(t *testing.T) {
	doc := GenerateRuleDocumentation(docTestRuleSet(t), DocWithFactories(NewProcessorFactory(), NewStrategyFactory()))
	if doc.Code != "order" {
		t.Errorf("Expected code order but have %s", doc.Code)
	}
	if len(doc.Rows) != 4 {
		t.Fatalf("Expected 4 rows but have %d", len(doc.Rows))
	}

	row := doc.Rows[0]
	if row.Processors != "trim > uppercase" {
		t.Errorf("Expected processors 'trim > uppercase' but have '%s'", row.Processors)
	}
	if row.Order != "" {
		t.Errorf("Expected no order without aggregations but have '%s'", row.Order)
	}

	row = doc.Rows[1]
	if row.Order != "process first" {
		t.Errorf("Expected 'process first' for join but have '%s'", row.Order)
	}
	if row.Notes != "Reads a sequence" {
		t.Errorf("Expected 'Reads a sequence' but have '%s'", row.Notes)
	}

	if doc.Rows[2].Order != "aggregate first" {
		t.Errorf("Expected 'aggregate first' for sum but have '%s'", doc.Rows[2].Order)
	}

	notes := doc.Rows[3].Notes
	for _, expected := range []string{"Writes into element zero", "Processor sparkle is skipped", "Strategy median is skipped"} {
		if !strings.Contains(notes, expected) {
			t.Errorf("Expected notes to contain '%s' but have '%s'", expected, notes)
		}
	}
}

func TestGenerateRuleDocumentation_Sorted(t *testing.T) {
	doc := GenerateRuleDocumentation(docTestRuleSet(t), DocSortedByTarget())
	var targets []string
	for _, row := range doc.Rows {
		targets = append(targets, row.TargetPath)
	}
	expected := "amount,buyer.name,lines[*].x,skus"
	if strings.Join(targets, ",") != expected {
		t.Errorf("Expected %s but have %s", expected, strings.Join(targets, ","))
	}
	if doc.Rows[0].Notes != "Reads a sequence" {
		t.Errorf("Expected notes to follow their row but have '%s'", doc.Rows[0].Notes)
	}
}

func TestRuleDocumentation_FormatCSV(t *testing.T) {
	csv, err := GenerateRuleDocumentation(docTestRuleSet(t)).FormatCSV()
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 6 {
		t.Fatalf("Expected 6 lines but have %d:\n%s", len(lines), csv)
	}
	if lines[0] != "# Rule set: order" {
		t.Errorf("Expected title line but have %s", lines[0])
	}
	if lines[1] != "Target Path,Source Path,Processors,Aggregations,Order,Notes" {
		t.Errorf("Expected header line but have %s", lines[1])
	}
	expected := "buyer.name,customer.name,trim > uppercase,,,"
	if lines[2] != expected {
		t.Errorf("Expected %s but have %s", expected, lines[2])
	}
	expected = "skus,items[*].sku,prefix:#,join:|,process first,Reads a sequence"
	if lines[3] != expected {
		t.Errorf("Expected %s but have %s", expected, lines[3])
	}
}
