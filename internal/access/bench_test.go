package access

import (
	"context"
	"testing"
)

func BenchmarkDecideAndProjectEngagedSupplier(b *testing.B) {
	classifier := mustClassifier(b)
	svc := NewService(ServiceDeps{
		Store:     storeOf(fullSupplier()),
		Resolver:  NewResolver(&stubLinks{links: []Link{{Kind: ResourceDelivery, Status: "in_transit"}}}, classifier, 0),
		Engine:    NewEngine(classifier),
		Projector: NewProjector(classifier),
		Audit:     &stubAudit{},
	})
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.DecideAndProject(ctx, builder(), ResourceSupplier, "sup-2"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkProjectDelivery(b *testing.B) {
	classifier := mustClassifier(b)
	engine := NewEngine(classifier)
	projector := NewProjector(classifier)
	res := sampleDelivery("in_transit")
	d := engine.Decide(builder(), ResourceDelivery, res, Facts{IsOwner: true, HasAcceptedEngagement: true})
	rec := res.Record()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := projector.Project(ResourceDelivery, rec, d); err != nil {
			b.Fatal(err)
		}
	}
}
