package spotify

// LoginSuccessHTML is served on the loopback callback once the redirect has been captured.
const LoginSuccessHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Spotify connected - MusicAlarm</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: #121212;
            color: #fff;
        }
        .container {
            text-align: center;
            background: #181818;
            padding: 2.5rem;
            border-radius: 12px;
            max-width: 420px;
        }
        h1 { color: #1db954; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Spotify connected</h1>
        <p>You can close this window and return to MusicAlarm.</p>
    </div>
    <script>setTimeout(function () { window.close(); }, 3000);</script>
</body>
</html>`

// LoginFailedHTML is served when the provider redirected back with an error.
const LoginFailedHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Spotify login failed - MusicAlarm</title>
</head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4rem;">
    <h1>Spotify login did not complete</h1>
    <p>Return to MusicAlarm and try again.</p>
</body>
</html>`
