package report

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Interest Rate Monitor - {{.ReportDate}}</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', sans-serif;
    background: #0f172a; color: #e2e8f0; padding: 16px; font-size: 14px;
    max-width: 900px; margin: 0 auto;
  }
  h1 { font-size: 20px; color: #f8fafc; margin-bottom: 4px; }
  .subtitle { color: #94a3b8; font-size: 12px; margin-bottom: 16px; }
  .section { margin-bottom: 20px; }
  .section-title {
    font-size: 15px; font-weight: 700; color: #38bdf8;
    border-bottom: 1px solid #1e293b; padding-bottom: 6px; margin-bottom: 10px;
  }
  table { width: 100%; border-collapse: collapse; margin-bottom: 8px; }
  th {
    background: #1e293b; color: #94a3b8; font-size: 11px; font-weight: 600;
    text-transform: uppercase; letter-spacing: 0.5px;
    padding: 8px 10px; text-align: left; border-bottom: 1px solid #334155;
  }
  td {
    padding: 7px 10px; border-bottom: 1px solid #1e293b; font-size: 13px;
    white-space: nowrap;
  }
  tr:hover { background: #1e293b; }
  .rate-name { color: #e2e8f0; font-weight: 500; }
  .rate-value { color: #f8fafc; font-weight: 700; font-family: 'SF Mono', 'Fira Code', monospace; }
  .source { color: #64748b; font-size: 11px; }
  .footer { color: #475569; font-size: 11px; margin-top: 16px; text-align: center; }
  .alert { color: #f87171; font-size: 13px; margin-bottom: 4px; }
  .chart-block { margin-bottom: 12px; }
  .forecast-table td { font-size: 12px; }
  .forecast-note { color: #94a3b8; font-size: 12px; }
  .forecast-heading { color: #94a3b8; font-size: 12px; margin: 12px 0 6px; }
  .prob-bar {
    display: inline-block; height: 14px; border-radius: 2px;
    background: #38bdf8; min-width: 2px; vertical-align: middle;
  }
</style>
</head>
<body>

<h1>&#128200; Interest Rate Monitor</h1>
<p class="subtitle">Report generated: {{.ReportDate}} {{.ReportTime}} UTC</p>

{{if .Alerts}}
<div class="section">
  <div class="section-title">&#9888; Data Health</div>
  {{range .Alerts}}<p class="alert">{{.}}</p>
  {{end}}
</div>
{{end}}

<div class="section">
  <div class="section-title">&#127469;&#127472; HKD Interest Rates</div>
  <table>
    <thead>
      <tr><th>Rate</th><th>Current</th><th>{{.ShortWindow}}d Change</th><th>{{.LongWindow}}d Change</th><th>Trend</th></tr>
    </thead>
    <tbody>
      {{range .HKDRates}}
      <tr>
        <td class="rate-name">{{.Name}}</td>
        <td class="rate-value">{{.Value}}</td>
        <td>{{.ShortChange}}</td>
        <td>{{.LongChange}}</td>
        <td>{{.Sparkline}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>
  <p class="source">Source: Hong Kong Association of Banks</p>
</div>

<div class="section">
  <div class="section-title">&#127482;&#127480; USD Interest Rates</div>
  <table>
    <thead>
      <tr><th>Rate</th><th>Current</th><th>{{.ShortWindow}}d Change</th><th>{{.LongWindow}}d Change</th><th>Trend</th></tr>
    </thead>
    <tbody>
      {{range .USDRates}}
      <tr>
        <td class="rate-name">{{.Name}}</td>
        <td class="rate-value">{{.Value}}</td>
        <td>{{.ShortChange}}</td>
        <td>{{.LongChange}}</td>
        <td>{{.Sparkline}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>
  <p class="source">Sources: Federal Reserve (FRED), NY Fed</p>
</div>

{{if .TreasuryYields}}
<div class="section">
  <div class="section-title">&#127974; US Treasury Yield Curve</div>
  <table>
    <thead>
      <tr><th>Maturity</th><th>Yield</th><th>{{.ShortWindow}}d Change</th></tr>
    </thead>
    <tbody>
      {{range .TreasuryYields}}
      <tr>
        <td class="rate-name">{{.Name}}</td>
        <td class="rate-value">{{.Value}}</td>
        <td>{{.ShortChange}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>
  <p class="source">Source: US Department of the Treasury</p>
</div>
{{end}}

{{if .Promotions}}
<div class="section">
  <div class="section-title">&#127974; DBS eSaver Promotions</div>
  <table>
    <thead>
      <tr><th>Month</th><th>Min HKD</th><th>Min USD</th><th>HKD Rate</th><th>USD Rate</th><th>Best Total</th></tr>
    </thead>
    <tbody>
      {{range .Promotions}}
      <tr>
        <td class="rate-name">{{.Month}}</td>
        <td>{{.MinHKD}}</td>
        <td>{{.MinUSD}}</td>
        <td class="rate-value">{{.HKDRate}}</td>
        <td class="rate-value">{{.USDRate}}</td>
        <td class="rate-value">{{.MaxTotal}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>
  <p class="source">Source: DBS Hong Kong promotional terms</p>
</div>
{{end}}

<div class="section">
  <div class="section-title">&#128302; Market Rate Expectations</div>
  {{if .FedWatch}}
  <h4 class="forecast-heading">CME FedWatch - FOMC Meeting Probabilities</h4>
  <table class="forecast-table">
    <thead>
      <tr>
        <th>Meeting</th>
        {{range .FedWatchRanges}}<th>{{.}}</th>
        {{end}}
      </tr>
    </thead>
    <tbody>
      {{range .FedWatch}}
      <tr>
        <td class="rate-name">{{.Label}}</td>
        {{range .Cells}}<td>{{.}}</td>
        {{end}}
      </tr>
      {{end}}
    </tbody>
  </table>
  <p class="source">Source: CME Group FedWatch Tool (based on Fed Funds Futures)</p>
  {{else}}
  <p class="forecast-note">FedWatch data unavailable &mdash; CME may restrict automated access.</p>
  {{end}}

  {{if .Forwards}}
  <h4 class="forecast-heading">HKD Forward Points (Implied Future Rates)</h4>
  <table class="forecast-table">
    <thead>
      <tr><th>Tenor</th><th>Bid</th><th>Offer</th></tr>
    </thead>
    <tbody>
      {{range .Forwards}}
      <tr>
        <td class="rate-name">{{.Tenor}}</td>
        <td class="rate-value">{{.Bid}}</td>
        <td class="rate-value">{{.Offer}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>
  <p class="source">Source: HKMA (HKD Forward Exchange Rates)</p>
  {{end}}
</div>

{{if .Charts}}
<div class="section">
  <div class="section-title">&#128201; Charts</div>
  {{range .Charts}}<div class="chart-block">{{.}}</div>
  {{end}}
</div>
{{end}}

{{if .Summaries}}
<div class="section">
  <div class="section-title">&#128202; {{.SummaryWindow}}d Statistics</div>
  <table>
    <thead>
      <tr><th>Series</th><th>Min</th><th>Mean</th><th>Max</th><th>Obs</th></tr>
    </thead>
    <tbody>
      {{range .Summaries}}
      <tr>
        <td class="rate-name">{{.Name}}</td>
        <td>{{.Min}}</td>
        <td>{{.Mean}}</td>
        <td>{{.Max}}</td>
        <td>{{.Count}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>
</div>
{{end}}

<div class="footer">
  ratewatcher &mdash; Automated Interest Rate Tracker<br>
  Data may be delayed. Not financial advice.
</div>

</body>
</html>
`
