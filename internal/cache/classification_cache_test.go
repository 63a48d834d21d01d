package cache_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"

	"github.com/flanksource/sdg-cache/internal/cache"
	"github.com/flanksource/sdg-cache/models"
)

var _ = Describe("ClassificationCache", func() {
	var (
		store   *cache.Store
		results *cache.ClassificationCache
		ctx     context.Context
	)

	response := map[string]interface{}{
		"sdgs": []interface{}{
			map[string]interface{}{"goal": "SDG 3", "score": 0.91},
		},
	}

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		store, err = cache.OpenStore(cache.Options{Path: filepath.Join(GinkgoT().TempDir(), "cache.sqlite3")})
		Expect(err).NotTo(HaveOccurred())
		results = store.Classifications()
	})

	AfterEach(func() {
		if store != nil {
			_ = store.Close()
		}
	})

	It("should report a miss before any put", func() {
		result, found, err := results.Get(ctx, "W1", "aurora")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
		Expect(result).To(BeNil())
	})

	It("should return exactly what was stored", func() {
		Expect(results.Put(ctx, "W1", "aurora", response, lo.ToPtr("SDG 3 (0.91)"), lo.ToPtr("ok"))).To(Succeed())

		result, found, err := results.Get(ctx, " W1 ", " aurora")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(result.OpenAlexID).To(Equal("W1"))
		Expect(result.Model).To(Equal("aurora"))
		Expect(*result.Formatted).To(Equal("SDG 3 (0.91)"))
		Expect(*result.Note).To(Equal("ok"))
		Expect(result.ClassifiedAt.IsZero()).To(BeFalse())

		var decoded map[string]interface{}
		Expect(result.DecodeResponse(&decoded)).To(Succeed())
		Expect(decoded).To(Equal(response))
	})

	It("should keep empty strings distinct from NULL", func() {
		Expect(results.Put(ctx, "W1", "aurora", nil, lo.ToPtr(""), nil)).To(Succeed())

		result, found, err := results.Get(ctx, "W1", "aurora")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(result.Response).To(BeNil())
		Expect(result.Formatted).To(Equal(lo.ToPtr("")))
		Expect(result.Note).To(BeNil())
	})

	It("should keep an empty response object", func() {
		Expect(results.Put(ctx, "W1", "aurora", map[string]interface{}{}, nil, nil)).To(Succeed())

		result, found, err := results.Get(ctx, "W1", "aurora")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(result.Response).To(Equal(lo.ToPtr("{}")))
	})

	It("should not require a cached work", func() {
		Expect(results.Put(ctx, "W-orphan", "aurora", response, nil, nil)).To(Succeed())

		_, found, err := store.Works().Get(ctx, "W-orphan")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())

		_, found, err = results.Get(ctx, "W-orphan", "aurora")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
	})

	It("should keep one row per (work, model) pair", func() {
		Expect(results.Put(ctx, "W1", "aurora", response, lo.ToPtr("first"), lo.ToPtr("a"))).To(Succeed())
		Expect(results.Put(ctx, "W1", "elsevier", response, lo.ToPtr("other model"), nil)).To(Succeed())
		Expect(results.Put(ctx, "W1", "aurora", nil, lo.ToPtr("latest"), nil)).To(Succeed())

		Expect(countRows(store, "sdg_results")).To(Equal(2))

		latest, _, err := results.Get(ctx, "W1", "aurora")
		Expect(err).NotTo(HaveOccurred())
		Expect(*latest.Formatted).To(Equal("latest"))
		Expect(latest.Response).To(BeNil())
		Expect(latest.Note).To(BeNil())

		other, _, err := results.Get(ctx, "W1", "elsevier")
		Expect(err).NotTo(HaveOccurred())
		Expect(*other.Formatted).To(Equal("other model"))
	})

	DescribeTable("should reject incomplete keys",
		func(workID, model string, expected error) {
			Expect(results.Put(ctx, workID, model, nil, nil, nil)).To(MatchError(expected))
		},
		Entry("missing work", " ", "aurora", cache.ErrMissingWorkID),
		Entry("missing model", "W1", "", cache.ErrMissingModel),
	)

	It("should surface serialization failures without writing", func() {
		err := results.Put(ctx, "W1", "aurora", func() {}, nil, nil)
		Expect(err).To(HaveOccurred())

		_, found, err := results.Get(ctx, "W1", "aurora")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})

	It("should serialize concurrent writers across both tables", func() {
		const writers = 10
		var wg sync.WaitGroup
		wg.Add(writers * 2)

		for i := 0; i < writers; i++ {
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				tag := fmt.Sprintf("writer-%d", i)
				Expect(results.Put(ctx, "W1", "aurora", map[string]string{"tag": tag}, lo.ToPtr(tag), lo.ToPtr(tag))).To(Succeed())
			}(i)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				Expect(store.Works().Put(ctx, models.Work{OpenAlexID: fmt.Sprintf("W%d", i)}, nil)).To(Succeed())
			}(i)
		}
		wg.Wait()

		result, found, err := results.Get(ctx, "W1", "aurora")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(*result.Note).To(Equal(*result.Formatted))

		var payload map[string]string
		Expect(result.DecodeResponse(&payload)).To(Succeed())
		Expect(payload["tag"]).To(Equal(*result.Formatted))

		Expect(countRows(store, "works")).To(Equal(writers))
		Expect(countRows(store, "sdg_results")).To(Equal(1))
	})
})
