package bleve

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/dbpedia/lookup/internal/domain/search/querytree"
)

// translate converts a query tree into a bleve query. Boolean boosts are
// pushed down onto the leaves since bleve scores compound queries as the
// sum of their children.
func translate(n querytree.Node) (query.Query, error) {
	return translateBoosted(n, 1)
}

func translateBoosted(n querytree.Node, mult float64) (query.Query, error) {
	switch q := n.(type) {
	case querytree.Term:
		tq := bleve.NewTermQuery(q.Term)
		tq.SetField(q.Field)
		tq.SetBoost(q.Boost * mult)
		return tq, nil

	case querytree.Prefix:
		pq := bleve.NewPrefixQuery(q.Prefix)
		pq.SetField(q.Field)
		pq.SetBoost(q.Boost * mult)
		return pq, nil

	case querytree.Fuzzy:
		fq := bleve.NewFuzzyQuery(q.Term)
		fq.SetField(q.Field)
		fq.SetFuzziness(q.Distance)
		fq.SetPrefix(q.PrefixLen)
		fq.SetBoost(q.Boost * mult)
		return fq, nil

	case querytree.NumericRange:
		lo, hi := float64(q.Min), float64(q.Max)
		incl := true
		rq := bleve.NewNumericRangeInclusiveQuery(&lo, &hi, &incl, &incl)
		rq.SetField(q.Field)
		rq.SetBoost(q.Boost * mult)
		return rq, nil

	case *querytree.Bool:
		if q.IsEmpty() {
			return bleve.NewMatchNoneQuery(), nil
		}
		m := mult * q.Boost
		bq := bleve.NewBooleanQuery()
		for _, c := range q.Must {
			cq, err := translateBoosted(c, m)
			if err != nil {
				return nil, err
			}
			bq.AddMust(cq)
		}
		for _, c := range q.Should {
			cq, err := translateBoosted(c, m)
			if err != nil {
				return nil, err
			}
			bq.AddShould(cq)
		}
		if q.MinShould > 0 && len(q.Should) > 0 {
			bq.SetMinShould(float64(q.MinShould))
		}
		return bq, nil

	case querytree.TermsIn:
		if len(q.Values) == 0 {
			return bleve.NewMatchNoneQuery(), nil
		}
		clauses := make([]query.Query, 0, len(q.Values))
		for _, v := range q.Values {
			mq := bleve.NewMatchQuery(v)
			mq.SetField(q.Field)
			mq.SetBoost(q.Boost * mult)
			clauses = append(clauses, mq)
		}
		return bleve.NewDisjunctionQuery(clauses...), nil

	case querytree.MatchAll:
		mq := bleve.NewMatchAllQuery()
		mq.SetBoost(q.Boost * mult)
		return mq, nil

	case querytree.MatchNone:
		return bleve.NewMatchNoneQuery(), nil
	}
	return nil, fmt.Errorf("unsupported query node %T", n)
}
