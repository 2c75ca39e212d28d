package integration

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/UjwalAKrishna/drawrag-core/pkg/events"
	"github.com/UjwalAKrishna/drawrag-core/pkg/library"
	"github.com/UjwalAKrishna/drawrag-core/pkg/pipeline"
)

// buildValidPipeline assembles the canonical three-stage pipeline and
// fills every required field.
func buildValidPipeline(ctx context.Context, store *pipeline.Store) (ds, vdb, llm *pipeline.Node) {
	GinkgoHelper()

	ds, err := store.CreateNode(ctx, "datasource", "sqlite", 10, 10)
	Expect(err).NotTo(HaveOccurred())
	vdb, err = store.CreateNode(ctx, "vectordb", "chroma", 50, 10)
	Expect(err).NotTo(HaveOccurred())
	llm, err = store.CreateNode(ctx, "llm", "openai", 100, 10)
	Expect(err).NotTo(HaveOccurred())

	_, err = store.CreateEdge(ctx, ds.ID, vdb.ID)
	Expect(err).NotTo(HaveOccurred())
	_, err = store.CreateEdge(ctx, vdb.ID, llm.ID)
	Expect(err).NotTo(HaveOccurred())

	_, err = store.UpdateNodeConfig(ctx, ds.ID, pipeline.Config{
		"database_path": "/data/docs.db",
		"table_name":    "documents",
	})
	Expect(err).NotTo(HaveOccurred())
	_, err = store.UpdateNodeConfig(ctx, vdb.ID, pipeline.Config{
		"collection_name": "documents",
	})
	Expect(err).NotTo(HaveOccurred())
	_, err = store.UpdateNodeConfig(ctx, llm.ID, pipeline.Config{
		"api_key": "sk-integration",
	})
	Expect(err).NotTo(HaveOccurred())
	return ds, vdb, llm
}

var _ = Describe("Pipeline authoring", func() {
	var (
		ctx   context.Context
		bus   *events.Bus
		store *pipeline.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		bus = events.New(events.WithLogger(logger))
		store = pipeline.NewStore(defs, bus, pipeline.WithLogger(logger))
	})

	It("walks the canvas from empty to a valid pipeline", func() {
		By("creating a sqlite datasource")
		ds, err := store.CreateNode(ctx, "datasource", "sqlite", 10, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(ds.ID).To(Equal("node-1"))
		Expect(ds.Status).To(Equal(pipeline.StatusUnconfigured))

		By("creating an openai llm")
		llm, err := store.CreateNode(ctx, "llm", "openai", 100, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(llm.ID).To(Equal("node-2"))

		By("rejecting the direct datasource to llm edge")
		_, err = store.CreateEdge(ctx, ds.ID, llm.ID)
		var invalid *pipeline.EdgeInvalidError
		Expect(errors.As(err, &invalid)).To(BeTrue())
		Expect(store.EdgeCount()).To(BeZero())

		By("creating a chroma vectordb between them")
		vdb, err := store.CreateNode(ctx, "vectordb", "chroma", 50, 10)
		Expect(err).NotTo(HaveOccurred())

		By("connecting datasource to vectordb and vectordb to llm")
		toStorage, err := store.CreateEdge(ctx, ds.ID, vdb.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(toStorage.Type).To(Equal("to-storage"))
		toGeneration, err := store.CreateEdge(ctx, vdb.ID, llm.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(toGeneration.Type).To(Equal("to-generation"))

		By("reporting every unconfigured node")
		report := store.ValidatePipeline()
		Expect(report.Valid).To(BeFalse())
		Expect(report.Issues).To(HaveLen(3))
		Expect(report.Warnings).To(BeEmpty())

		By("filling the required configuration")
		_, err = store.UpdateNodeConfig(ctx, ds.ID, pipeline.Config{
			"database_path": "/data/docs.db",
			"table_name":    "documents",
		})
		Expect(err).NotTo(HaveOccurred())
		_, err = store.UpdateNodeConfig(ctx, vdb.ID, pipeline.Config{
			"collection_name": "documents",
		})
		Expect(err).NotTo(HaveOccurred())
		configured, err := store.UpdateNodeConfig(ctx, llm.ID, pipeline.Config{
			"api_key": "sk-integration",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(configured.Status).To(Equal(pipeline.StatusConfigured))

		By("validating the finished pipeline")
		report = store.ValidatePipeline()
		Expect(report.Valid).To(BeTrue())
		Expect(report.Issues).To(BeEmpty())
		Expect(report.Warnings).To(BeEmpty())
		Expect(store.HealthScore()).To(Equal(1.0))

		By("exporting a readable flow")
		text := store.ExportText()
		Expect(text).To(ContainSubstring("flow:"))
		Expect(text).To(ContainSubstring("1. [datasource/sqlite]"))
		Expect(text).To(ContainSubstring("3. [llm/openai]"))
		Expect(text).To(ContainSubstring("node-1 -> node-3 [to-storage]"))
	})

	It("creates every cataloged component with the right initial status", func() {
		for _, def := range defs.Definitions() {
			node, err := store.CreateNode(ctx, def.Category, def.Subtype, 0, 0)
			Expect(err).NotTo(HaveOccurred(), "creating %s/%s", def.Category, def.Subtype)

			want := pipeline.StatusConfigured
			if len(def.RequiredFields) > 0 {
				want = pipeline.StatusUnconfigured
			}
			Expect(node.Status).To(Equal(want), "initial status of %s/%s", def.Category, def.Subtype)
		}
	})

	DescribeTable("edge compatibility",
		func(fromCat, fromSub, toCat, toSub string, wantOK bool) {
			from, err := store.CreateNode(ctx, fromCat, fromSub, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			to, err := store.CreateNode(ctx, toCat, toSub, 40, 0)
			Expect(err).NotTo(HaveOccurred())

			_, err = store.CreateEdge(ctx, from.ID, to.ID)
			if wantOK {
				Expect(err).NotTo(HaveOccurred())
			} else {
				var invalid *pipeline.EdgeInvalidError
				Expect(errors.As(err, &invalid)).To(BeTrue())
			}
		},
		Entry("datasource to vectordb", "datasource", "sqlite", "vectordb", "chroma", true),
		Entry("datasource to embedding", "datasource", "upload", "embedding", "local", true),
		Entry("embedding to vectordb", "embedding", "local", "vectordb", "faiss", true),
		Entry("vectordb to llm", "vectordb", "chroma", "llm", "ollama", true),
		Entry("datasource to llm", "datasource", "postgres", "llm", "openai", false),
		Entry("llm to datasource", "llm", "openai", "datasource", "sqlite", false),
		Entry("llm to vectordb", "llm", "anthropic", "vectordb", "pinecone", false),
		Entry("vectordb to datasource", "vectordb", "weaviate", "datasource", "mysql", false),
	)

	It("tracks configuration as required fields fill and clear", func() {
		node, err := store.CreateNode(ctx, "vectordb", "chroma", 0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(node.Status).To(Equal(pipeline.StatusUnconfigured))

		filled, err := store.UpdateNodeConfig(ctx, node.ID, pipeline.Config{
			"collection_name": "documents",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(filled.Status).To(Equal(pipeline.StatusConfigured))

		cleared, err := store.UpdateNodeConfig(ctx, node.ID, pipeline.Config{
			"collection_name": "",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(cleared.Status).To(Equal(pipeline.StatusUnconfigured))
	})

	It("keeps the graph consistent when a node is removed", func() {
		ds, vdb, llm := buildValidPipeline(ctx, store)

		Expect(store.DeleteNode(ctx, vdb.ID)).To(BeTrue())

		Expect(store.EdgeCount()).To(BeZero())
		for _, e := range store.Edges() {
			Expect(e.From).NotTo(Equal(vdb.ID))
			Expect(e.To).NotTo(Equal(vdb.ID))
		}

		report := store.ValidatePipeline()
		Expect(report.Valid).To(BeFalse())

		_, dsOK := store.Node(ds.ID)
		_, llmOK := store.Node(llm.ID)
		Expect(dsOK).To(BeTrue())
		Expect(llmOK).To(BeTrue())
	})

	Describe("change notification", func() {
		It("notifies listeners in priority order", func() {
			var order []string
			bus.On(pipeline.EventNodeCreated, func(_ context.Context, _ any) (any, error) {
				order = append(order, "second")
				return "second", nil
			}, events.WithPriority(5))
			bus.On(pipeline.EventNodeCreated, func(_ context.Context, _ any) (any, error) {
				order = append(order, "first")
				return "first", nil
			}, events.WithPriority(10))

			node, err := store.CreateNode(ctx, "datasource", "upload", 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(order).To(Equal([]string{"first", "second"}))

			By("surfacing both results in delivery order")
			deliveries := bus.Emit(ctx, pipeline.EventNodeCreated, pipeline.NodeEvent{Node: node})
			Expect(deliveries).To(HaveLen(2))
			Expect(deliveries[0].Result).To(Equal("first"))
			Expect(deliveries[1].Result).To(Equal("second"))
		})

		It("delivers committed state in event payloads", func() {
			var seen *pipeline.Node
			bus.On(pipeline.EventNodeCreated, func(_ context.Context, payload any) (any, error) {
				ev := payload.(pipeline.NodeEvent)
				seen = ev.Node
				_, ok := store.Node(ev.Node.ID)
				Expect(ok).To(BeTrue())
				return nil, nil
			})

			created, err := store.CreateNode(ctx, "llm", "ollama", 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).NotTo(BeNil())
			Expect(seen.ID).To(Equal(created.ID))
		})

		It("unblocks a waiter when the graph is cleared", func() {
			type outcome struct {
				payload any
				err     error
			}
			results := make(chan outcome, 1)
			go func() {
				payload, err := bus.WaitFor(ctx, pipeline.EventGraphCleared, 5*time.Second)
				results <- outcome{payload, err}
			}()

			Eventually(func() int {
				return bus.ListenerCount(pipeline.EventGraphCleared)
			}).Should(Equal(1))

			store.Clear(ctx)

			var got outcome
			Eventually(results).Should(Receive(&got))
			Expect(got.err).NotTo(HaveOccurred())
			Expect(got.payload).To(BeNil())
		})

		It("times out a waiter when nothing fires", func() {
			_, err := bus.WaitFor(ctx, pipeline.EventGraphImported, 20*time.Millisecond)
			Expect(err).To(MatchError(events.ErrWaitTimeout))
		})
	})

	Describe("saving and restoring", func() {
		It("round-trips an empty canvas", func() {
			doc := store.ToDocument()

			restored := pipeline.NewStore(defs, events.New())
			Expect(restored.FromDocument(ctx, doc)).To(Succeed())
			Expect(restored.NodeCount()).To(BeZero())
			Expect(restored.ToDocument().Components).To(Equal(doc.Components))
			Expect(restored.ToDocument().Connections).To(Equal(doc.Connections))
		})

		It("round-trips a populated canvas through its document form", func() {
			buildValidPipeline(ctx, store)

			doc := store.ToDocument()

			restored := pipeline.NewStore(defs, events.New(), pipeline.WithLogger(logger))
			Expect(restored.FromDocument(ctx, doc)).To(Succeed())

			again := restored.ToDocument()
			Expect(again.Components).To(Equal(doc.Components))
			Expect(again.Connections).To(Equal(doc.Connections))
			Expect(again.ComputeHash()).To(Equal(doc.ComputeHash()))
			Expect(restored.ValidatePipeline().Valid).To(BeTrue())

			By("re-importing into the populated store")
			Expect(store.FromDocument(ctx, doc)).To(Succeed())
			final := store.ToDocument()
			Expect(final.Components).To(Equal(doc.Components))
			Expect(final.Connections).To(Equal(doc.Connections))
		})

		It("saves the canvas to the library and restores it", func() {
			buildValidPipeline(ctx, store)

			lib := library.New(defs, library.WithLogger(logger))
			id, err := lib.Save("", store.ToDocument())
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(BeEmpty())

			stored, ok := lib.Get(id)
			Expect(ok).To(BeTrue())
			Expect(library.HealthScore(stored, defs)).To(Equal(1.0))

			summaries := lib.Summaries()
			Expect(summaries).To(HaveLen(1))
			Expect(summaries[0].Components).To(Equal(3))
			Expect(summaries[0].Connections).To(Equal(2))

			restored := pipeline.NewStore(defs, events.New())
			Expect(restored.FromDocument(ctx, stored)).To(Succeed())
			Expect(restored.ValidatePipeline().Valid).To(BeTrue())
		})
	})
})
