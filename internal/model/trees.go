package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TreeEnsemble is a gradient-boosted regression model read from an XGBoost
// JSON tree dump. The prediction is base_score plus the leaf of every tree.
type TreeEnsemble struct {
	baseScore float64
	trees     []compiledTree
	width     int
}

// treeNode mirrors one node of an XGBoost JSON dump
type treeNode struct {
	NodeID         int         `json:"nodeid"`
	Split          string      `json:"split"`
	SplitCondition float64     `json:"split_condition"`
	Yes            int         `json:"yes"`
	No             int         `json:"no"`
	Missing        *int        `json:"missing"`
	Leaf           *float64    `json:"leaf"`
	Children       []*treeNode `json:"children"`
}

type ensembleDoc struct {
	BaseScore    float64     `json:"base_score"`
	NFeatures    int         `json:"n_features"`
	FeatureNames []string    `json:"feature_names"`
	Trees        []*treeNode `json:"trees"`
}

// compiledNode is a flattened node; leaves have feature == -1
type compiledNode struct {
	feature   int
	threshold float32
	yes       int
	no        int
	missing   int
	leaf      float64
}

type compiledTree []compiledNode

// DecodeTreeEnsemble reads a boosted tree model from JSON
func DecodeTreeEnsemble(data []byte) (*TreeEnsemble, error) {
	var doc ensembleDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse regressor: %w", err)
	}
	if len(doc.Trees) == 0 {
		return nil, fmt.Errorf("regressor has no trees")
	}

	names := make(map[string]int, len(doc.FeatureNames))
	for i, n := range doc.FeatureNames {
		names[n] = i
	}

	e := &TreeEnsemble{baseScore: doc.BaseScore}
	maxFeature := -1
	for i, root := range doc.Trees {
		tree, treeMax, err := compileTree(root, names)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		if treeMax > maxFeature {
			maxFeature = treeMax
		}
		e.trees = append(e.trees, tree)
	}

	e.width = maxFeature + 1
	if doc.NFeatures > 0 {
		if maxFeature >= doc.NFeatures {
			return nil, fmt.Errorf("trees split on feature %d but n_features is %d", maxFeature, doc.NFeatures)
		}
		e.width = doc.NFeatures
	}
	return e, nil
}

// compileTree flattens a nested dump into a slice indexed by node id
func compileTree(root *treeNode, names map[string]int) (compiledTree, int, error) {
	if root == nil {
		return nil, -1, fmt.Errorf("empty tree")
	}
	if root.NodeID != 0 {
		return nil, -1, fmt.Errorf("root node id is %d, want 0", root.NodeID)
	}

	byID := make(map[int]*treeNode)
	stack := []*treeNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			return nil, -1, fmt.Errorf("null node in tree")
		}
		if _, dup := byID[n.NodeID]; dup {
			return nil, -1, fmt.Errorf("duplicate node id %d", n.NodeID)
		}
		byID[n.NodeID] = n
		stack = append(stack, n.Children...)
	}

	tree := make(compiledTree, len(byID))
	maxFeature := -1
	for id, n := range byID {
		if id < 0 || id >= len(tree) {
			return nil, -1, fmt.Errorf("node id %d out of range", id)
		}
		if n.Leaf != nil {
			tree[id] = compiledNode{feature: -1, leaf: *n.Leaf}
			continue
		}

		feature, err := parseFeature(n.Split, names)
		if err != nil {
			return nil, -1, fmt.Errorf("node %d: %w", id, err)
		}
		missing := n.Yes
		if n.Missing != nil {
			missing = *n.Missing
		}
		children := make(map[int]bool, len(n.Children))
		for _, c := range n.Children {
			children[c.NodeID] = true
		}
		for _, child := range []int{n.Yes, n.No, missing} {
			if !children[child] {
				return nil, -1, fmt.Errorf("node %d points at %d which is not one of its children", id, child)
			}
		}
		if feature > maxFeature {
			maxFeature = feature
		}
		tree[id] = compiledNode{
			feature:   feature,
			threshold: float32(n.SplitCondition),
			yes:       n.Yes,
			no:        n.No,
			missing:   missing,
		}
	}
	return tree, maxFeature, nil
}

// parseFeature resolves "f12" or a named feature to a column index
func parseFeature(split string, names map[string]int) (int, error) {
	if i, ok := names[split]; ok {
		return i, nil
	}
	if strings.HasPrefix(split, "f") {
		if i, err := strconv.Atoi(split[1:]); err == nil && i >= 0 {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown split feature %q", split)
}

// InputWidth returns the number of columns the trees read
func (e *TreeEnsemble) InputWidth() int { return e.width }

// Predict sums base_score and one leaf per tree
func (e *TreeEnsemble) Predict(x []float64) (float64, error) {
	if len(x) < e.width {
		return 0, fmt.Errorf("expected at least %d columns, got %d", e.width, len(x))
	}

	sum := e.baseScore
	for _, tree := range e.trees {
		sum += tree.leafFor(x)
	}
	return sum, nil
}

// leafFor walks from the root; XGBoost goes to "yes" when x < threshold,
// comparing in float32 as the booster stores its split conditions
func (t compiledTree) leafFor(x []float64) float64 {
	id := 0
	for {
		n := t[id]
		if n.feature < 0 {
			return n.leaf
		}
		v := x[n.feature]
		switch {
		case math.IsNaN(v):
			id = n.missing
		case float32(v) < n.threshold:
			id = n.yes
		default:
			id = n.no
		}
	}
}
