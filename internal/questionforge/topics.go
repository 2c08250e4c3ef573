package questionforge

import (
	"sort"
	"strings"

	"github.com/abhisek/intervue/internal/interview"
)

// topic is the prompt catalog entry for a subtopic.
type topic struct {
	Description string
	Examples    []string
}

var dsaTopics = map[string]topic{
	"arrays": {
		Description: "Arrays & Strings: array manipulation, string algorithms and two-pointer techniques",
		Examples: []string{
			"Two-pointer problems (finding pairs, removing duplicates)",
			"Sliding window (max sum subarray, longest substring)",
			"Prefix sums and cumulative arrays",
			"String manipulation (reversal, rotation, matching)",
			"In-place array modifications",
			"Kadane's algorithm variations",
		},
	},
	"linkedlists": {
		Description: "Linked Lists: traversal, reversal and cycle detection",
		Examples: []string{
			"Reverse a linked list (iterative or recursive)",
			"Detect a cycle using Floyd's algorithm",
			"Find the middle element with fast and slow pointers",
			"Merge two sorted linked lists",
			"Remove the nth node from the end",
			"Intersection of two linked lists",
		},
	},
	"trees": {
		Description: "Trees & Graphs: tree traversals, BST operations and graph algorithms",
		Examples: []string{
			"Tree traversals (inorder, preorder, postorder, level-order)",
			"BST operations (insert, delete, search, validate)",
			"Graph BFS and DFS traversals",
			"Lowest common ancestor",
			"Path sum problems",
			"Topological sort",
			"Detect a cycle in a graph",
		},
	},
	"sorting": {
		Description: "Sorting & Searching: quicksort, mergesort, binary search and variations",
		Examples: []string{
			"Implement quicksort or mergesort",
			"Binary search variations (first or last occurrence)",
			"Search in a rotated sorted array",
			"Kth largest or smallest element",
			"Merge intervals",
			"Sort colors (Dutch National Flag)",
		},
	},
	"dynamic": {
		Description: "Dynamic Programming: optimization problems with memoization and tabulation",
		Examples: []string{
			"Knapsack problem (0/1, unbounded)",
			"Longest Common Subsequence",
			"Longest Increasing Subsequence",
			"Coin change",
			"Edit distance",
			"Maximum subarray",
		},
	},
	"advanced": {
		Description: "Advanced Algorithms: greedy algorithms, backtracking and complex patterns",
		Examples: []string{
			"Backtracking (N-Queens, Sudoku solver, permutations)",
			"Greedy algorithms (activity selection, Huffman coding)",
			"Bit manipulation (single number, counting bits)",
			"Trie operations",
			"Union-Find",
			"Segment tree basics",
		},
	},
}

var aptitudeTopics = map[string]topic{
	"quantitative": {
		Description: "Quantitative Aptitude: arithmetic, algebra, geometry and number problems",
		Examples: []string{
			"Percentages (discounts, increases, decreases)",
			"Profit and loss",
			"Time, speed and distance",
			"Work and time (pipes, cisterns)",
			"Ratios and proportions",
			"Simple and compound interest",
			"Averages and mixtures",
			"Number series",
		},
	},
	"logical": {
		Description: "Logical Reasoning: puzzles, pattern recognition and analytical problems",
		Examples: []string{
			"Number and letter series",
			"Syllogisms",
			"Blood relations",
			"Direction sense",
			"Seating arrangements",
			"Coding-decoding",
			"Ranking and ordering",
		},
	},
	"verbal": {
		Description: "Verbal Reasoning: comprehension, vocabulary and language skills",
		Examples: []string{
			"Reading comprehension",
			"Sentence correction and error spotting",
			"Fill in the blanks",
			"Synonyms and antonyms",
			"Para jumbles",
			"Idioms and phrases",
		},
	},
	"data-interpretation": {
		Description: "Data Interpretation: analyzing charts, graphs and tables",
		Examples: []string{
			"Bar graph analysis",
			"Pie chart problems",
			"Line graph trends and growth rates",
			"Table averages and totals",
			"Data sufficiency",
		},
	},
	"analytical": {
		Description: "Analytical Reasoning: complex logic problems and critical thinking",
		Examples: []string{
			"Statement and assumptions",
			"Statement and conclusions",
			"Cause and effect",
			"Course of action",
			"Strengthening and weakening arguments",
			"Assertion and reason",
		},
	},
}

// aptitudeHints gives an example format for subtopics that benefit from one.
var aptitudeHints = map[string]string{
	"verbal": "This is verbal reasoning: focus on language, grammar, vocabulary and comprehension.\n" +
		"Example: \"Choose the correct word: The project was _____ (accepted/excepted) by the committee.\"",
	"logical": "This is logical reasoning: focus on patterns, deductions and arrangements.\n" +
		"Example: \"Find the next number: 2, 6, 12, 20, 30, ?\"",
	"quantitative": "This is quantitative aptitude: focus on calculations and formulas.\n" +
		"Example: \"A train travels 300 km in 5 hours. Find its speed in m/s.\"",
	"data-interpretation": "This is data interpretation: the question MUST include the data it refers to (a table or a chart described in text).",
}

var technicalTopics = map[string]topic{
	"golang": {
		Description: "Go: concurrency, interfaces and building reliable services",
		Examples:    []string{"Goroutines and channels", "Context cancellation", "Interfaces and composition", "Error wrapping", "Testing", "Profiling"},
	},
	"docker": {
		Description: "Docker: containerizing applications for consistent deployment",
		Examples:    []string{"Images and layers", "Dockerfile best practices", "Multi-stage builds", "Networking", "Volumes", "Docker Compose"},
	},
	"kubernetes": {
		Description: "Kubernetes: orchestrating containerized workloads",
		Examples:    []string{"Pods and Deployments", "Services and Ingress", "ConfigMaps and Secrets", "Scaling", "Helm", "Monitoring"},
	},
	"sql": {
		Description: "SQL & Databases: querying and managing relational databases",
		Examples:    []string{"JOINs", "Window functions", "Indexing", "Query optimization", "Schema design", "Transactions"},
	},
	"react": {
		Description: "React: building component-based user interfaces",
		Examples:    []string{"Hooks", "State management", "Rendering performance", "Effects and lifecycles", "Testing components"},
	},
	"microservices": {
		Description: "Microservices: designing distributed systems",
		Examples:    []string{"Service decomposition", "API design", "Inter-service communication", "Event sourcing", "Observability", "Resilience patterns"},
	},
	"ml": {
		Description: "Machine Learning: building and evaluating predictive models",
		Examples:    []string{"Supervised and unsupervised learning", "Feature engineering", "Cross-validation", "Hyperparameter tuning", "Model evaluation"},
	},
}

// lookupTopic finds a catalog entry. Subtopics may carry a track prefix
// or suffix ("backend-golang", "logical-reasoning"), so each
// dash-separated segment is tried after the full key.
func lookupTopic(catalog map[string]topic, subtopic string) (string, topic, bool) {
	key := strings.ToLower(strings.TrimSpace(subtopic))
	if t, ok := catalog[key]; ok {
		return key, t, true
	}
	for _, seg := range strings.Split(key, "-") {
		if t, ok := catalog[seg]; ok {
			return seg, t, true
		}
	}
	return key, topic{}, false
}

func catalogFor(c interview.Category) map[string]topic {
	switch c {
	case interview.CategoryDSA:
		return dsaTopics
	case interview.CategoryAptitude:
		return aptitudeTopics
	case interview.CategoryTechnical:
		return technicalTopics
	}
	return nil
}

// Subtopics lists the catalogued subtopics of a category, sorted. HR and
// custom interviews have none.
func Subtopics(c interview.Category) []string {
	catalog := catalogFor(c)
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KnownSubtopic reports whether subtopic resolves to a catalogued topic of
// the category. Uncatalogued subtopics are still accepted by the forge;
// they are passed to the oracle verbatim.
func KnownSubtopic(c interview.Category, subtopic string) bool {
	catalog := catalogFor(c)
	if catalog == nil {
		return false
	}
	_, _, ok := lookupTopic(catalog, subtopic)
	return ok
}
