package metainfo

import (
	"encoding/json"
	"testing"
	"time"
)

func TestToolVersionKey(t *testing.T) {
	if got := ToolVersionKey("samtools"); got != "seqforge:tool.version:samtools" {
		t.Fatalf("unexpected key: %s", got)
	}
}

func TestFirstStringSkipsOtherKinds(t *testing.T) {
	m := New()
	m.Add(KeyName, IntegerValue{Value: 1})
	if _, ok := m.FirstString(KeyName); ok {
		t.Fatalf("integer value should not satisfy FirstString")
	}

	m.Replace(KeyName, StringValue{Value: "reads.fastq"})
	got, ok := m.FirstString(KeyName)
	if !ok || got != "reads.fastq" {
		t.Fatalf("FirstString = %q, %v", got, ok)
	}
}

func TestReplaceDropsPriorValues(t *testing.T) {
	m := New()
	m.Add(KeyOrganism, StringValue{Value: "Homo sapiens"}, StringValue{Value: "Mus musculus"})
	m.Replace(KeyOrganism, StringValue{Value: "Danio rerio"})
	if got := m.Strings(KeyOrganism); len(got) != 1 || got[0] != "Danio rerio" {
		t.Fatalf("replace left %v", got)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	link, err := NewExternalLink("reads", "ftp://ebi.ac.uk/run42.fastq.gz", map[string]string{"compression": "gzip"})
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	m := New()
	m.Add(KeyName, StringValue{Value: "run42"})
	m.Add(KeyExternalLinks, link)
	m.Add(KeyCreationDate, NewDateTime(time.Date(2019, 4, 2, 10, 0, 0, 0, time.UTC)))
	m.Add(KeyStorageDataSize, MemorySizeValue{Bytes: 1 << 30})
	m.Add(ToolVersionKey("samtools"), StringValue{Value: "0.1.19"})
	m.Add(KeyHasPairedReads, BooleanValue{Value: true})
	m.Add("seqforge:sources", FileReference{Accession: "SF000123", Direction: DirectionSource})

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Metainfo
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if v, ok := back.FirstString(ToolVersionKey("samtools")); !ok || v != "0.1.19" {
		t.Fatalf("tool version lost: %q %v", v, ok)
	}
	got, ok := back.Get(KeyExternalLinks).(ExternalLink)
	if !ok || got.URL != link.URL || got.Format["compression"] != "gzip" {
		t.Fatalf("external link lost: %#v", back.Get(KeyExternalLinks))
	}
	dt, ok := back.Get(KeyCreationDate).(DateTimeValue)
	if !ok || dt.Time().Year() != 2019 {
		t.Fatalf("datetime lost: %#v", back.Get(KeyCreationDate))
	}
	ref, ok := back.Get("seqforge:sources").(FileReference)
	if !ok || ref.Direction != DirectionSource {
		t.Fatalf("reference lost: %#v", back.Get("seqforge:sources"))
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	if _, err := DecodeValue([]byte(`{"type":"matrix","value":"x"}`)); err == nil {
		t.Fatalf("unknown type should fail")
	}
}

func TestValidateLinkURL(t *testing.T) {
	ok := []string{
		"http://example.org/a.fastq",
		"https://example.org/a.fastq",
		"ftp://ebi.ac.uk/a.sra",
		"ascp://fasp.sra.ebi.ac.uk/a.sra",
		"s3://bucket/key.bam",
		"raw:SF000042",
	}
	for _, u := range ok {
		if err := ValidateLinkURL(u); err != nil {
			t.Fatalf("%s should validate: %v", u, err)
		}
	}

	bad := []string{"gopher://x/y", "no-scheme", "http:", ":body"}
	for _, u := range bad {
		if err := ValidateLinkURL(u); err == nil {
			t.Fatalf("%s should be rejected", u)
		}
	}

	if !IsRawLink("raw:SF000042") || IsRawLink("http://x") {
		t.Fatalf("raw link detection broken")
	}
}
