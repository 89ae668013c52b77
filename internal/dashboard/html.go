package dashboard

// layoutHTML is shared by every page. Pages fill the "content" and
// "script" blocks.
const layoutHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Page.Title}} · TrendGoat</title>
    <script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"></script>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: 'Inter', -apple-system, system-ui, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; }
        a { color: #38bdf8; text-decoration: none; }
        .header { background: linear-gradient(135deg, #1e293b, #334155); padding: 1.25rem 2rem; border-bottom: 1px solid #475569; display: flex; justify-content: space-between; align-items: center; }
        .header h1 { font-size: 1.5rem; background: linear-gradient(135deg, #38bdf8, #818cf8); background-clip: text; -webkit-background-clip: text; -webkit-text-fill-color: transparent; }
        .header .status { padding: 0.5rem 1rem; border-radius: 9999px; font-size: 0.875rem; font-weight: 600; }
        .status.running { background: #166534; color: #4ade80; }
        .status.idle { background: #854d0e; color: #fde047; }
        nav { display: flex; gap: 0.25rem; padding: 0.5rem 2rem; background: #111827; border-bottom: 1px solid #334155; flex-wrap: wrap; }
        nav a { padding: 0.5rem 0.9rem; border-radius: 8px; color: #94a3b8; font-size: 0.875rem; }
        nav a.active, nav a:hover { background: #1e293b; color: #f1f5f9; }
        main { padding: 1.5rem 2rem; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 1rem; margin-bottom: 1.5rem; }
        .card { background: #1e293b; border: 1px solid #334155; border-radius: 12px; padding: 1.25rem; margin-bottom: 1.5rem; }
        .grid .card { margin-bottom: 0; transition: transform 0.2s; }
        .grid .card:hover { transform: translateY(-2px); }
        .card h2 { font-size: 1rem; margin-bottom: 1rem; color: #cbd5e1; }
        .card .label { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.05em; color: #94a3b8; margin-bottom: 0.5rem; }
        .card .value { font-size: 2rem; font-weight: 700; color: #f1f5f9; }
        .card.accent { border-color: #38bdf8; } .card.accent .value { color: #38bdf8; }
        .card.success { border-color: #4ade80; } .card.success .value { color: #4ade80; }
        .card.warning { border-color: #fbbf24; } .card.warning .value { color: #fbbf24; }
        .card.error { border-color: #f87171; } .card.error .value { color: #f87171; }
        .chart-box { position: relative; height: 340px; }
        table { width: 100%; border-collapse: collapse; font-size: 0.875rem; }
        th, td { text-align: left; padding: 0.5rem; border-bottom: 1px solid #334155; vertical-align: top; }
        th { color: #94a3b8; font-weight: 600; text-transform: uppercase; font-size: 0.7rem; letter-spacing: 0.05em; }
        button { background: #2563eb; color: #fff; border: 0; border-radius: 8px; padding: 0.5rem 1rem; cursor: pointer; font-size: 0.875rem; }
        button.secondary { background: #334155; }
        button.danger { background: #b91c1c; }
        input, select { background: #0f172a; color: #e2e8f0; border: 1px solid #475569; border-radius: 8px; padding: 0.45rem 0.6rem; }
        .row { display: flex; gap: 0.5rem; align-items: center; flex-wrap: wrap; margin-bottom: 0.75rem; }
        .tag { display: inline-block; background: #334155; border-radius: 9999px; padding: 0.2rem 0.7rem; margin: 0 0.3rem 0.3rem 0; font-size: 0.8rem; }
        .muted { color: #64748b; font-size: 0.8rem; }
        .flash { min-height: 1.2rem; font-size: 0.85rem; color: #fbbf24; }
        pre.logs { background: #020617; padding: 1rem; border-radius: 8px; max-height: 360px; overflow: auto; font-size: 0.75rem; line-height: 1.4; }
        .footer { text-align: center; padding: 1rem; color: #475569; font-size: 0.75rem; }
    </style>
</head>
<body>
    <div class="header">
        <h1>TrendGoat</h1>
        <span class="status idle" id="run-status">Idle</span>
    </div>
    <nav>
        {{- range .Nav}}
        <a href="{{.Path}}"{{if .Active}} class="active"{{end}}>{{.Title}}</a>
        {{- end}}
    </nav>
    <main>
        {{block "content" .}}{{end}}
    </main>
    <div class="footer">TrendGoat {{.Version}}</div>
    <script>
        const charts = {};

        async function api(path, opts) {
            const res = await fetch(path, opts);
            const body = await res.json().catch(function () { return {}; });
            if (!res.ok) {
                throw new Error(body.error || res.statusText);
            }
            return body;
        }

        function post(path, data) {
            return api(path, {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify(data || {})
            });
        }

        function fmt(n) {
            if (typeof n !== 'number') return n || '';
            if (n >= 1e6) return (n / 1e6).toFixed(1) + 'M';
            if (n >= 1e3) return (n / 1e3).toFixed(1) + 'K';
            return Math.round(n * 100) / 100;
        }

        function flash(id, msg) {
            const el = document.getElementById(id);
            if (el) el.textContent = msg;
        }

        async function renderChart(canvasId, url, type) {
            const data = await api(url);
            const canvas = document.getElementById(canvasId);
            if (!canvas) return;
            if (charts[canvasId]) charts[canvasId].destroy();
            charts[canvasId] = new Chart(canvas, {
                type: type || 'bar',
                data: data,
                options: {
                    responsive: true,
                    maintainAspectRatio: false,
                    plugins: { legend: { labels: { color: '#cbd5e1' } } },
                    scales: {
                        x: { ticks: { color: '#94a3b8' }, grid: { color: '#1e293b' } },
                        y: { ticks: { color: '#94a3b8' }, grid: { color: '#1e293b' }, beginAtZero: true }
                    }
                }
            });
        }

        // renderTable fills tbody with one row per item. Each column is
        // [field getter, optional link getter].
        function renderTable(tbodyId, items, columns) {
            const tbody = document.getElementById(tbodyId);
            if (!tbody) return;
            tbody.replaceChildren();
            if (!items || items.length === 0) {
                const tr = tbody.insertRow();
                const td = tr.insertCell();
                td.colSpan = columns.length;
                td.className = 'muted';
                td.textContent = 'No data collected yet.';
                return;
            }
            items.forEach(function (item) {
                const tr = tbody.insertRow();
                columns.forEach(function (col) {
                    const td = tr.insertCell();
                    const value = fmt(col[0](item));
                    const href = col[1] ? col[1](item) : '';
                    if (href) {
                        const a = document.createElement('a');
                        a.href = href;
                        a.target = '_blank';
                        a.rel = 'noopener';
                        a.textContent = value;
                        td.appendChild(a);
                    } else {
                        td.textContent = value;
                    }
                });
            });
        }

        async function refreshRunStatus() {
            try {
                const health = await api('/health');
                const el = document.getElementById('run-status');
                el.textContent = health.collection_running ? 'Collecting' : 'Idle';
                el.className = 'status ' + (health.collection_running ? 'running' : 'idle');
            } catch (e) {}
        }

        async function collect(flashId) {
            try {
                const res = await post('/api/collect', {});
                flash(flashId, res.message);
                refreshRunStatus();
            } catch (e) {
                flash(flashId, e.message);
            }
        }

        refreshRunStatus();
        setInterval(refreshRunStatus, 5000);
    </script>
    {{block "script" .}}{{end}}
</body>
</html>`

const overviewHTML = `{{define "content"}}
<div class="grid">
    <div class="card accent"><div class="label">Tracked Keywords</div><div class="value" id="total_keywords">0</div></div>
    <div class="card"><div class="label">Google Trends Keywords</div><div class="value" id="google_trends_count">0</div></div>
    <div class="card success"><div class="label">Reddit Posts</div><div class="value" id="reddit_posts">0</div></div>
    <div class="card error"><div class="label">YouTube Videos</div><div class="value" id="youtube_videos">0</div></div>
    <div class="card accent"><div class="label">Tweets</div><div class="value" id="twitter_tweets">0</div></div>
    <div class="card warning"><div class="label">Upwork Jobs</div><div class="value" id="upwork_jobs">0</div></div>
    <div class="card"><div class="label">Active Sources</div><div class="value" id="data_sources">0</div></div>
</div>
<div class="card">
    <div class="row">
        <button onclick="collect('collect-flash')">Collect now</button>
        <span class="muted">Last updated: <span id="last_updated">never</span></span>
    </div>
    <div class="flash" id="collect-flash"></div>
</div>
<div class="card">
    <h2>Keyword frequency by source</h2>
    <div class="chart-box"><canvas id="frequency-chart"></canvas></div>
</div>
<div class="card">
    <h2>Top trending keywords</h2>
    <table>
        <thead><tr><th>Keyword</th><th>Score</th><th>Mentions</th><th>Sentiment</th></tr></thead>
        <tbody id="trending-body"></tbody>
    </table>
</div>
<div class="card">
    <h2>Top Reddit posts</h2>
    <table>
        <thead><tr><th>Title</th><th>Subreddit</th><th>Score</th></tr></thead>
        <tbody id="activity-reddit"></tbody>
    </table>
</div>
<div class="card">
    <h2>Top YouTube videos</h2>
    <table>
        <thead><tr><th>Title</th><th>Channel</th><th>Views</th></tr></thead>
        <tbody id="activity-youtube"></tbody>
    </table>
</div>
{{end}}

{{define "script"}}
<script>
    async function refreshOverview() {
        try {
            const stats = await api('/api/stats');
            ['total_keywords', 'google_trends_count', 'reddit_posts', 'youtube_videos',
             'twitter_tweets', 'upwork_jobs', 'data_sources'].forEach(function (k) {
                flash(k, fmt(stats[k] || 0));
            });
            flash('last_updated', stats.last_updated ? new Date(stats.last_updated).toLocaleString() : 'never');
        } catch (e) {}

        renderChart('frequency-chart', '/api/charts/keyword-frequency', 'bar').catch(function () {});

        api('/api/trending/top?limit=10').then(function (top) {
            renderTable('trending-body', top.trending_keywords, [
                [function (k) { return k.keyword; }],
                [function (k) { return k.trending_score; }],
                [function (k) { return k.total_mentions; }],
                [function (k) { return k.sentiment.sentiment_label; }]
            ]);
        }).catch(function () { renderTable('trending-body', [], [[], [], [], []]); });

        api('/api/recent-activity').then(function (act) {
            renderTable('activity-reddit', act.reddit, [
                [function (p) { return p.title; }, function (p) { return p.permalink; }],
                [function (p) { return 'r/' + p.subreddit; }],
                [function (p) { return p.score; }]
            ]);
            renderTable('activity-youtube', act.youtube, [
                [function (v) { return v.title; }, function (v) { return v.url; }],
                [function (v) { return v.channel_title; }],
                [function (v) { return v.view_count; }]
            ]);
        }).catch(function () {});
    }

    refreshOverview();
    setInterval(refreshOverview, 30000);
</script>
{{end}}`

// sourceHTML serves every per-source page; the columns come from the
// data-source attribute.
const sourceHTML = `{{define "content"}}
<div id="source-page" data-source="{{.Page.Source}}" data-chart="{{.Page.Chart}}" data-chart-type="{{.Page.ChartType}}">
    <div class="card">
        <h2>{{.Page.Title}} by keyword</h2>
        <div class="chart-box"><canvas id="source-chart"></canvas></div>
    </div>
    <div class="card">
        <div class="row">
            <h2 style="margin: 0">Collected items</h2>
            <span class="muted" id="source-count"></span>
        </div>
        <table>
            <thead><tr id="source-head"></tr></thead>
            <tbody id="source-body"></tbody>
        </table>
    </div>
</div>
{{end}}

{{define "script"}}
<script>
    const sourceColumns = {
        reddit: {
            items: function (d) { return d.posts; },
            columns: [
                ['Title', function (p) { return p.title; }, function (p) { return p.permalink; }],
                ['Subreddit', function (p) { return 'r/' + p.subreddit; }],
                ['Score', function (p) { return p.score; }],
                ['Comments', function (p) { return p.num_comments; }],
                ['Keyword', function (p) { return p.search_keyword; }]
            ]
        },
        youtube: {
            items: function (d) { return d.videos; },
            columns: [
                ['Title', function (v) { return v.title; }, function (v) { return v.url; }],
                ['Channel', function (v) { return v.channel_title; }],
                ['Views', function (v) { return v.view_count; }],
                ['Likes', function (v) { return v.like_count; }],
                ['Comments', function (v) { return v.comment_count; }]
            ]
        },
        twitter: {
            items: function (d) { return d.tweets; },
            columns: [
                ['Tweet', function (t) { return t.text; }, function (t) { return t.url; }],
                ['User', function (t) { return '@' + t.username; }],
                ['Likes', function (t) { return t.like_count; }],
                ['Retweets', function (t) { return t.retweet_count; }],
                ['Method', function (t) { return t.mock ? 'mock' : t.method; }]
            ]
        },
        google: {
            items: function (d) { return (d.interest_over_time || []).slice().reverse(); },
            columns: [
                ['Keyword', function (p) { return p.search_keyword; }],
                ['Date', function (p) { return p.date; }],
                ['Interest', function (p) { return p.value; }]
            ]
        },
        upwork: {
            items: function (d) { return d.jobs; },
            columns: [
                ['Title', function (j) { return j.title; }, function (j) { return j.url; }],
                ['Budget', function (j) { return j.budget.raw_text; }],
                ['Experience', function (j) { return j.experience_level; }],
                ['Proposals', function (j) { return j.proposals; }],
                ['Skills', function (j) { return (j.skills_required || []).join(', '); }]
            ]
        }
    };

    async function refreshSource() {
        const page = document.getElementById('source-page');
        const source = page.dataset.source;
        const view = sourceColumns[source];

        renderChart('source-chart', '/api/charts/' + page.dataset.chart, page.dataset.chartType).catch(function () {});

        const head = document.getElementById('source-head');
        head.replaceChildren();
        view.columns.forEach(function (c) {
            const th = document.createElement('th');
            th.textContent = c[0];
            head.appendChild(th);
        });

        try {
            const doc = await api('/api/' + source);
            const items = (view.items(doc) || []).slice(0, 100);
            flash('source-count', (doc.collection_info ? doc.collection_info.total_items : 0) + ' stored');
            renderTable('source-body', items, view.columns.map(function (c) { return c.slice(1); }));
        } catch (e) {
            flash('source-count', e.message);
        }
    }

    refreshSource();
    setInterval(refreshSource, 60000);
</script>
{{end}}`

const trendingHTML = `{{define "content"}}
<div class="card">
    <div class="row">
        <button onclick="refreshAnalysis()">Run analysis</button>
        <span class="muted">Analyzed: <span id="analysis-time">never</span></span>
    </div>
    <div class="flash" id="analysis-flash"></div>
</div>
<div class="card">
    <h2>Trending keywords</h2>
    <table>
        <thead><tr><th>#</th><th>Keyword</th><th>Score</th><th>Mentions</th><th>Sources</th><th>Sentiment</th><th>Example</th></tr></thead>
        <tbody id="trending-body"></tbody>
    </table>
</div>
<div class="card">
    <h2>Tracked keywords across sources</h2>
    <table>
        <thead><tr><th>Keyword</th><th>Items</th><th>Sources</th></tr></thead>
        <tbody id="breakdown-body"></tbody>
    </table>
</div>
{{end}}

{{define "script"}}
<script>
    function loadTrending() {
        api('/api/trending/top?limit=50').then(function (top) {
            flash('analysis-time', new Date(top.analysis_timestamp).toLocaleString());
            const rows = top.trending_keywords.map(function (k, i) { k.rank = i + 1; return k; });
            renderTable('trending-body', rows, [
                [function (k) { return k.rank; }],
                [function (k) { return k.keyword; }],
                [function (k) { return k.trending_score; }],
                [function (k) { return k.total_mentions; }],
                [function (k) { return Object.keys(k.sources).join(', '); }],
                [function (k) { return k.sentiment.sentiment_label + ' (' + k.sentiment.polarity + ')'; }],
                [function (k) { return k.contexts.length ? k.contexts[0].content : ''; },
                 function (k) { return k.contexts.length ? k.contexts[0].url : ''; }]
            ]);
        }).catch(function (e) {
            flash('analysis-flash', e.message);
            renderTable('trending-body', [], [[], [], [], [], [], [], []]);
        });

        api('/api/keywords/breakdown').then(function (rows) {
            renderTable('breakdown-body', rows, [
                [function (r) { return r.keyword; }],
                [function (r) { return r.total_items; }],
                [function (r) {
                    return Object.keys(r.sources).map(function (s) { return s + ': ' + r.sources[s].items; }).join(', ');
                }]
            ]);
        }).catch(function () {});
    }

    async function refreshAnalysis() {
        flash('analysis-flash', 'Analyzing...');
        try {
            const res = await post('/api/trending/refresh');
            flash('analysis-flash', res.keywords + ' trending keywords found');
            loadTrending();
        } catch (e) {
            flash('analysis-flash', e.message);
        }
    }

    loadTrending();
</script>
{{end}}`

const settingsHTML = `{{define "content"}}
<div class="card">
    <h2>Tracked keywords</h2>
    <div id="keyword-list" class="row"></div>
    <div class="row">
        <input id="keyword-input" placeholder="Add a keyword" maxlength="50">
        <button onclick="addKeyword()">Add</button>
        <button class="secondary" onclick="resetKeywords()">Reset to defaults</button>
    </div>
    <div class="muted" id="keyword-limits"></div>
    <div class="flash" id="keyword-flash"></div>
</div>
<div class="card">
    <h2>Scheduler</h2>
    <div class="row">
        <span>Status: <strong id="sched-state">unknown</strong></span>
        <span class="muted">Next run in <span id="sched-next">-</span> min</span>
        <span class="muted">Runs: <span id="sched-count">0</span> (<span id="sched-errors">0</span> failed)</span>
    </div>
    <div class="row">
        <label>Every <input id="sched-interval" type="number" min="5" max="1440" style="width: 6rem"> minutes</label>
        <label><input type="checkbox" class="sched-source" value="google"> Google Trends</label>
        <label><input type="checkbox" class="sched-source" value="reddit"> Reddit</label>
        <label><input type="checkbox" class="sched-source" value="youtube"> YouTube</label>
        <label><input type="checkbox" class="sched-source" value="twitter"> Twitter/X</label>
        <label><input type="checkbox" class="sched-source" value="upwork"> Upwork</label>
    </div>
    <div class="row">
        <button onclick="saveSchedule(true)">Save and enable</button>
        <button class="danger" onclick="saveSchedule(false)">Disable</button>
        <button class="secondary" onclick="triggerNow()">Run now</button>
    </div>
    <div class="flash" id="sched-flash"></div>
</div>
<div class="card">
    <h2>Sources</h2>
    <table>
        <thead><tr><th>Source</th><th>Enabled</th><th>Ready</th><th>Method</th><th>Note</th></tr></thead>
        <tbody id="sources-body"></tbody>
    </table>
</div>
<div class="card">
    <h2>Recent logs</h2>
    <pre class="logs" id="logs"></pre>
</div>
{{end}}

{{define "script"}}
<script>
    async function loadKeywords() {
        const info = await api('/api/keywords');
        const list = document.getElementById('keyword-list');
        list.replaceChildren();
        info.keywords.forEach(function (kw) {
            const tag = document.createElement('span');
            tag.className = 'tag';
            tag.textContent = kw + ' ';
            const x = document.createElement('a');
            x.href = '#';
            x.textContent = '×';
            x.onclick = function (e) { e.preventDefault(); removeKeyword(kw); };
            tag.appendChild(x);
            list.appendChild(tag);
        });
        flash('keyword-limits', info.count + ' of ' + info.limits.max_keywords + ' keywords, ' +
            info.limits.min_length + '-' + info.limits.max_length + ' characters each');
    }

    async function mutateKeywords(path, data) {
        try {
            const res = await post(path, data);
            flash('keyword-flash', res.message);
            loadKeywords();
        } catch (e) {
            flash('keyword-flash', e.message);
        }
    }

    function addKeyword() {
        const input = document.getElementById('keyword-input');
        mutateKeywords('/api/keywords/add', { keyword: input.value });
        input.value = '';
    }
    function removeKeyword(kw) { mutateKeywords('/api/keywords/remove', { keyword: kw }); }
    function resetKeywords() { mutateKeywords('/api/keywords/reset'); }

    async function loadScheduler() {
        try {
            const st = await api('/api/scheduler/status');
            flash('sched-state', st.is_running ? 'running' : 'stopped');
            flash('sched-next', st.minutes_until_next === null ? '-' : st.minutes_until_next);
            flash('sched-count', st.collection_count);
            flash('sched-errors', st.error_count);
            document.getElementById('sched-interval').value = st.interval_minutes;
            document.querySelectorAll('.sched-source').forEach(function (cb) {
                cb.checked = st.sources.indexOf(cb.value) >= 0;
            });
        } catch (e) {
            flash('sched-flash', e.message);
        }
    }

    async function saveSchedule(enabled) {
        const sources = [];
        document.querySelectorAll('.sched-source:checked').forEach(function (cb) { sources.push(cb.value); });
        try {
            await post('/api/scheduler/settings', {
                enabled: enabled,
                sources: sources,
                interval_minutes: parseInt(document.getElementById('sched-interval').value, 10) || 0
            });
            flash('sched-flash', enabled ? 'Schedule saved' : 'Schedule disabled');
            loadScheduler();
        } catch (e) {
            flash('sched-flash', e.message);
        }
    }

    async function triggerNow() {
        try {
            const res = await post('/api/scheduler/trigger');
            flash('sched-flash', res.message);
        } catch (e) {
            flash('sched-flash', e.message);
        }
    }

    async function loadSources() {
        const infos = await api('/api/sources');
        renderTable('sources-body', infos, [
            [function (i) { return i.label; }],
            [function (i) { return i.enabled ? 'yes' : 'no'; }],
            [function (i) { return i.ready ? 'yes' : 'no'; }],
            [function (i) { return i.method; }],
            [function (i) { return i.note; }]
        ]);
    }

    async function loadLogs() {
        try {
            const res = await api('/api/logs?lines=200');
            const el = document.getElementById('logs');
            el.textContent = res.lines.join('\n');
            el.scrollTop = el.scrollHeight;
        } catch (e) {}
    }

    loadKeywords().catch(function (e) { flash('keyword-flash', e.message); });
    loadScheduler();
    loadSources().catch(function () {});
    loadLogs();
    setInterval(loadLogs, 5000);
    setInterval(loadScheduler, 30000);
</script>
{{end}}`
