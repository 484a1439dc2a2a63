package report

import (
	"bytes"
	"encoding/json"
	"html/template"
	"os"
	"path/filepath"
)

// The HTML template for the D3.js score chart
const d3Template = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Corpus Evaluation {{.RunID}}</title>
    <script src="https://d3js.org/d3.v7.min.js"></script>
    <style>
        body {
            margin: 0;
            font-family: Arial, sans-serif;
        }
        #chart {
            width: 100%;
            background-color: #f5f5f5;
        }
        .bar-label {
            font-size: 10px;
            pointer-events: none;
        }
        .controls {
            position: absolute;
            top: 10px;
            right: 10px;
            background-color: rgba(255,255,255,0.8);
            padding: 10px;
            border-radius: 5px;
            box-shadow: 0 0 10px rgba(0,0,0,0.1);
        }
    </style>
</head>
<body>
    <div id="chart"></div>
    <div class="controls">
        <h3>Evaluation {{.RunID}}</h3>
        <p>Documents: {{.Documents}}</p>
        <div>
            <label for="section-filter">Section:</label>
            <select id="section-filter">
                <option value="all">All Sections</option>
            </select>
        </div>
    </div>

    <script>
        // Summary rows
        const allRows = {{.ChartData}};
        const metrics = ["precision", "recall", "f1"];

        const margin = {top: 40, right: 30, bottom: 90, left: 50};
        const width = Math.max(window.innerWidth, 600) - margin.left - margin.right;
        const height = 420 - margin.top - margin.bottom;

        const svg = d3.select("#chart")
            .append("svg")
            .attr("width", width + margin.left + margin.right)
            .attr("height", height + margin.top + margin.bottom);
        const g = svg.append("g")
            .attr("transform", "translate(" + margin.left + "," + margin.top + ")");

        const color = d3.scaleOrdinal(d3.schemeCategory10).domain(metrics);

        const sections = [...new Set(allRows.map(row => row.section))];
        sections.forEach(section => {
            d3.select("#section-filter")
                .append("option")
                .attr("value", section)
                .text(section);
        });

        function render(rows) {
            g.selectAll("*").remove();

            const x0 = d3.scaleBand()
                .domain(rows.map(row => row.section + "/" + row.label))
                .range([0, width])
                .paddingInner(0.2);
            const x1 = d3.scaleBand()
                .domain(metrics)
                .range([0, x0.bandwidth()])
                .padding(0.05);
            const y = d3.scaleLinear().domain([0, 1]).range([height, 0]);

            g.append("g")
                .attr("transform", "translate(0," + height + ")")
                .call(d3.axisBottom(x0))
                .selectAll("text")
                .attr("transform", "rotate(-40)")
                .style("text-anchor", "end");

            g.append("g").call(d3.axisLeft(y));

            const group = g.selectAll(".row-group")
                .data(rows)
                .enter()
                .append("g")
                .attr("class", "row-group")
                .attr("transform", row => "translate(" + x0(row.section + "/" + row.label) + ",0)");

            group.selectAll("rect")
                .data(row => metrics.map(metric => ({metric: metric, value: row[metric]})))
                .enter()
                .append("rect")
                .attr("x", d => x1(d.metric))
                .attr("y", d => y(d.value === null ? 0 : d.value))
                .attr("width", x1.bandwidth())
                .attr("height", d => height - y(d.value === null ? 0 : d.value))
                .attr("fill", d => color(d.metric))
                .append("title")
                .text(d => d.metric + ": " + (d.value === null ? "absent" : d.value.toFixed(4)));
        }

        render(allRows);

        d3.select("#section-filter").on("change", function() {
            const selected = this.value;
            if (selected === "all") {
                render(allRows);
                return;
            }
            render(allRows.filter(row => row.section === selected));
        });
    </script>
</body>
</html>
`

// D3Chart writes self-contained HTML bar charts of evaluation scores.
type D3Chart struct {
	outputPath string
}

// NewD3Chart creates a chart writer targeting the given file.
func NewD3Chart(outputPath string) *D3Chart {
	return &D3Chart{
		outputPath: outputPath,
	}
}

// Render generates the HTML visualization of a corpus report.
func (c *D3Chart) Render(r *CorpusReport) error {
	dir := filepath.Dir(c.outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	chartData, err := json.Marshal(r.Rows())
	if err != nil {
		return err
	}

	tmpl, err := template.New("d3").Parse(d3Template)
	if err != nil {
		return err
	}

	data := struct {
		ChartData template.JS
		RunID     string
		Documents int
	}{
		ChartData: template.JS(chartData),
		RunID:     r.ID,
		Documents: len(r.PerDocument),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}

	return os.WriteFile(c.outputPath, buf.Bytes(), 0644)
}
