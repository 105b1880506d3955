// Package web carries the built-in player page.
package web

// IndexHTML is the player page served at the root path. It can listen
// over chunked MP3 or WebRTC and shows where the walk currently is.
var IndexHTML = []byte(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>everbeat</title>
<style>
  :root { color-scheme: dark; }
  body {
    margin: 0; min-height: 100vh;
    display: flex; align-items: center; justify-content: center;
    background: #0d1017; color: #d8dee9;
    font-family: ui-monospace, "SF Mono", Menlo, Consolas, monospace;
  }
  .card {
    width: min(420px, 92vw); padding: 28px;
    background: #151a24; border: 1px solid #222a3a; border-radius: 12px;
  }
  h1 { margin: 0 0 4px; font-size: 20px; letter-spacing: 2px; }
  .sub { margin: 0 0 20px; color: #5c6a85; font-size: 12px; }
  .row { display: flex; justify-content: space-between; margin: 6px 0; font-size: 13px; }
  .row span:first-child { color: #5c6a85; }
  .beatline {
    height: 6px; margin: 18px 0; border-radius: 3px;
    background: #222a3a; position: relative; overflow: hidden;
  }
  .beatline .cursor {
    position: absolute; top: 0; bottom: 0; width: 10px;
    background: #7aa2f7; border-radius: 3px; transition: left 120ms linear;
  }
  .buttons { display: flex; gap: 8px; margin-top: 20px; }
  button {
    flex: 1; padding: 10px 0; border: 1px solid #2c3750; border-radius: 8px;
    background: #1b2230; color: #d8dee9; font: inherit; cursor: pointer;
  }
  button:hover { background: #222c40; }
  button.active { border-color: #7aa2f7; color: #7aa2f7; }
</style>
</head>
<body>
<div class="card">
  <h1>everbeat</h1>
  <p class="sub">one song, forever</p>

  <div class="beatline"><div class="cursor" id="cursor"></div></div>

  <div class="row"><span>beat</span><span id="beat">-</span></div>
  <div class="row"><span>tempo</span><span id="bpm">-</span></div>
  <div class="row"><span>steps</span><span id="steps">-</span></div>
  <div class="row"><span>branches</span><span id="branches">-</span></div>
  <div class="row"><span>on air</span><span id="elapsed">-</span></div>
  <div class="row"><span>listeners</span><span id="listeners">-</span></div>

  <div class="buttons">
    <button id="play">listen</button>
    <button id="rtc">low latency</button>
    <button id="jump">jump</button>
  </div>

  <audio id="audio"></audio>
</div>

<script>
const audio = document.getElementById('audio');
const playBtn = document.getElementById('play');
const rtcBtn = document.getElementById('rtc');
let pc = null;

playBtn.onclick = () => {
  stopRTC();
  audio.srcObject = null;
  audio.src = '/stream';
  audio.play();
  playBtn.classList.add('active');
  rtcBtn.classList.remove('active');
};

rtcBtn.onclick = async () => {
  stopRTC();
  audio.removeAttribute('src');
  pc = new RTCPeerConnection();
  pc.addTransceiver('audio', { direction: 'recvonly' });
  pc.ontrack = (ev) => {
    audio.srcObject = ev.streams[0];
    audio.play();
  };
  const offer = await pc.createOffer();
  await pc.setLocalDescription(offer);
  const resp = await fetch('/offer', {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify(pc.localDescription),
  });
  await pc.setRemoteDescription(await resp.json());
  rtcBtn.classList.add('active');
  playBtn.classList.remove('active');
};

function stopRTC() {
  if (pc) { pc.close(); pc = null; }
}

document.getElementById('jump').onclick = () => {
  fetch('/api/jump', { method: 'POST' });
};

function fmtTime(s) {
  const h = Math.floor(s / 3600), m = Math.floor(s / 60) % 60, sec = Math.floor(s % 60);
  const mm = String(m).padStart(2, '0'), ss = String(sec).padStart(2, '0');
  return h > 0 ? h + ':' + mm + ':' + ss : m + ':' + ss;
}

async function poll() {
  try {
    const r = await fetch('/api/status');
    const st = await r.json();
    document.getElementById('beat').textContent = st.beat + ' / ' + st.beats;
    document.getElementById('bpm').textContent = st.bpm.toFixed(1) + ' bpm';
    document.getElementById('steps').textContent = st.steps;
    document.getElementById('branches').textContent = st.branches;
    document.getElementById('elapsed').textContent = fmtTime(st.elapsed_seconds);
    document.getElementById('listeners').textContent =
      st.http_listeners + ' http / ' + st.webrtc_listeners + ' webrtc';
    if (st.beats > 0) {
      const pct = (st.beat / st.beats) * 100;
      document.getElementById('cursor').style.left = 'calc(' + pct + '% - 5px)';
    }
  } catch (e) {
    // server restarting; keep polling
  }
}
poll();
setInterval(poll, 1000);
</script>
</body>
</html>
`)
