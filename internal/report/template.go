package report

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Viva Performance Report - {{if .Candidate.Name}}{{.Candidate.Name}}{{else}}Candidate{{end}}</title>
<style>
body { font-family: Arial, sans-serif; padding: 40px; max-width: 800px; margin: auto; color: #222; }
.header { text-align: center; border-bottom: 3px solid #333; padding-bottom: 20px; margin-bottom: 30px; }
.header h1 { color: #1a1a3e; margin: 0; }
.header p { color: #666; margin: 5px 0; }
.score { text-align: center; padding: 30px; border-radius: 15px; margin: 20px 0; }
.score h2 { font-size: 60px; margin: 0; }
.score.good { background: #d4edda; } .score.good h2 { color: #28a745; }
.score.fair { background: #fff3cd; } .score.fair h2 { color: #b8860b; }
.score.poor { background: #f8d7da; } .score.poor h2 { color: #dc3545; }
.stats { display: flex; justify-content: space-around; margin: 30px 0; }
.stat { text-align: center; padding: 15px 25px; border-radius: 10px; }
.stat h3 { margin: 0; font-size: 28px; }
.stat p { margin: 5px 0 0 0; color: #666; }
.correct { background: #d4edda; border-color: #28a745; }
.partial { background: #fff3cd; border-color: #ffc107; }
.wrong { background: #f8d7da; border-color: #dc3545; }
.question { padding: 15px; margin: 10px 0; border-radius: 10px; border-left: 5px solid; }
.question strong.text { display: block; margin-bottom: 8px; }
.answer { color: #555; font-size: 14px; }
.expected { color: #28a745; font-size: 14px; margin-top: 5px; }
.footer { text-align: center; margin-top: 40px; padding-top: 20px; border-top: 1px solid #ddd; color: #888; }
@media print { body { padding: 20px; } }
</style>
</head>
<body>
<div class="header">
<h1>Viva Performance Report</h1>
<p><strong>Candidate:</strong> {{na .Candidate.Name}}</p>
<p><strong>Punch ID:</strong> {{na .Candidate.PunchID}}</p>
<p><strong>Department:</strong> {{na .Candidate.Department}}</p>
<p><strong>Topic:</strong> {{na .Source}}</p>
<p><strong>Date:</strong> {{.Date}} | <strong>Time:</strong> {{.Time}}</p>
<p><strong>Language:</strong> {{na (print .Language)}}</p>
{{- if .RecordID}}
<p><strong>Record:</strong> #{{.RecordID}}</p>
{{- end}}
</div>
<div class="score {{.Band}}">
<h2>{{.Tally.Percent}}%</h2>
<p>{{.Headline}} ({{.Verdict}})</p>
</div>
<div class="stats">
<div class="stat correct"><h3>{{.Tally.Correct}}</h3><p>Correct</p></div>
<div class="stat partial"><h3>{{.Tally.Partial}}</h3><p>Partial</p></div>
<div class="stat wrong"><h3>{{.Tally.Wrong}}</h3><p>Wrong</p></div>
</div>
<div class="questions">
<h3>Question-wise Analysis</h3>
{{- range .Questions}}
<div class="question {{.Record.Classification}}">
<strong class="text">Q{{.Number}}: {{.Record.Question}}</strong>
<div class="answer"><strong>Your Answer:</strong> {{.Answer}}</div>
<div class="answer"><strong>Score:</strong> {{.Record.Score}}% | <strong>Status:</strong> {{.Status}}</div>
{{- if .Expected}}
<div class="expected"><strong>Expected Answer:</strong> {{.Record.ExpectedAnswer}}</div>
{{- end}}
</div>
{{- end}}
</div>
<div class="footer">
<p>Generated by viva</p>
</div>
</body>
</html>
`
